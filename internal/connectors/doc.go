// Package connectors feeds documents from outside sources into docqa.
// Each connector turns source events into uploads through the document service.
package connectors
