// internal/site/record.go
//
// Site and site-index records.
//
// A Site is one subdomain's served content: a stored HTML body, a
// reverse-proxy base URL, or a permanent-redirect target.  The
// per-owner index mirrors which
// subdomains a code owns so quota checks never scan the site table.
// Every site must appear exactly once in its owner's index, and vice
// versa; deploy and delete maintain the pair under the owner's lock.
package site

import "time"

// Type discriminates how a site's content field is interpreted.
type Type string

const (
	TypeHTML     Type = "HTML"
	TypeProxy    Type = "PROXY"
	TypeRedirect Type = "REDIRECT"
)

// Record is one deployed site, stored under `site::{subdomain}`.
type Record struct {
	Subdomain    string    `json:"subdomain"`
	Type         Type      `json:"type"`
	Content      string    `json:"content"`
	OwnerCode    string    `json:"ownerCode"`
	TemplateName string    `json:"templateName,omitempty"`
	Updated      time.Time `json:"updated"`
}

// IndexEntry is one row of an owner's site list, stored as a JSON
// array under `code_map::{code}`.
type IndexEntry struct {
	Subdomain    string    `json:"subdomain"`
	Created      time.Time `json:"created"`
	TemplateName string    `json:"templateName,omitempty"`
}
