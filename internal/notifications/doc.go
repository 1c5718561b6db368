// Package notifications delivers the pushed digest to a phone.
//
// Two providers are supported: ntfy (plain-text POST to <server>/<topic>) and
// ServerChan (form POST to sctapi.ftqq.com/<key>.send). When neither is
// configured NewService returns a no-op sink so the push task still marks
// entries and the pipeline keeps moving. Callers depend only on the Service
// interface.
package notifications
