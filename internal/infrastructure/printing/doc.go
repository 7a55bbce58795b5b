// Package printing turns order data into printable documents: HTML through
// html/template and PDF through a headless Chrome driven by chromedp.
package printing
