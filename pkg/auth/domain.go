package auth

import "strings"

// DomainPolicy decides which email addresses may sign in: any address under the
// organization domain plus an explicit allow-list. Comparison is case-insensitive.
type DomainPolicy struct {
	domain  string
	allowed map[string]struct{}
}

// NewDomainPolicy builds a policy. An empty domain admits only the allow-list.
func NewDomainPolicy(domain string, allowedEmails []string) *DomainPolicy {
	p := &DomainPolicy{
		domain:  strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@")),
		allowed: make(map[string]struct{}, len(allowedEmails)),
	}
	for _, e := range allowedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			p.allowed[e] = struct{}{}
		}
	}
	return p
}

// Allows reports whether email may sign in.
func (p *DomainPolicy) Allows(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if _, ok := p.allowed[email]; ok {
		return true
	}
	return p.domain != "" && strings.HasSuffix(email, "@"+p.domain)
}
