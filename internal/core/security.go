package core

// security.go holds the batch-level security gates.
//
// Every check here rejects the whole batch: an upload with the wrong type
// or size, a spreadsheet with a formula-injection cell anywhere, or an
// extraction URL that points at a blocked, local, or private host.

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// SecurityPolicy configures the batch security gates.
type SecurityPolicy struct {
	MaxFileSize       int64    // Bytes; 0 disables the check
	AllowedExtensions []string // Lowercase, with leading dot
	BlockedDomains    []string // Exact host or any subdomain
}

// DefaultSecurityPolicy returns the standard upload policy.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{".csv"},
	}
}

// CheckFile validates an upload's name and declared size.
func (p SecurityPolicy) CheckFile(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoFile
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if p.MaxFileSize > 0 && size > p.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, p.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range p.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (allowed: %s)", ErrFileType, ext, strings.Join(p.AllowedExtensions, ", "))
}

// formulaPrefixes are the leading characters spreadsheet programs evaluate.
const formulaPrefixes = "=+-@"

// IsFormulaCell reports whether a cell would be evaluated as a formula.
func IsFormulaCell(cell string) bool {
	cell = strings.TrimLeft(cell, " \t")
	return cell != "" && strings.ContainsRune(formulaPrefixes, rune(cell[0]))
}

// ScanForInjection checks the header and every cell of rows before any row
// is processed. The first offending cell is reported by 1-based row and column.
func ScanForInjection(header []string, rows []RawRow) error {
	for col, cell := range header {
		if IsFormulaCell(cell) {
			return fmt.Errorf("%w: header column %d", ErrCSVInjection, col+1)
		}
	}
	for i, row := range rows {
		for col, cell := range row.Cells {
			if IsFormulaCell(cell) {
				return fmt.Errorf("%w: row %d column %d", ErrCSVInjection, i+1, col+1)
			}
		}
	}
	return nil
}

// CheckURL validates an extraction URL: http or https, a host that is not
// blocked, and not a localhost name or a loopback/private/link-local IP literal.
func (p SecurityPolicy) CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, fmt.Errorf("%w: %s", ErrDomainBlocked, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return nil, fmt.Errorf("%w: %s", ErrDomainBlocked, host)
		}
	}
	for _, d := range p.BlockedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return nil, fmt.Errorf("%w: %s", ErrDomainBlocked, host)
		}
	}
	return u, nil
}
