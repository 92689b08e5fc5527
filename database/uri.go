package database

import "strings"

const DEFAULT_MONGODB_URL string = "mongodb://localhost:27017"

const srvScheme = "mongodb+srv://"

// NormalizeURI makes a user-supplied connection string usable: it strips the
// whitespace and <> placeholders left from copy-pasted Atlas templates, sets the
// database path when none is given and, for SRV (Atlas) URIs, asks for retryable
// majority writes. It never fails, a hopeless input is returned as cleaned up as
// it gets.
func NormalizeURI(raw string, dbName string) string {
	uri := strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(raw))
	if uri == "" {
		uri = DEFAULT_MONGODB_URL
	}
	dbName = strings.Trim(strings.TrimSpace(dbName), "/")

	scheme := ""
	rest := uri
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme, rest = uri[:i+3], uri[i+3:]
	}

	query := ""
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	hosts, path := rest, ""
	if i := strings.Index(rest, "/"); i >= 0 {
		hosts, path = rest[:i], strings.Trim(rest[i+1:], "/")
	}
	if path == "" {
		path = dbName
	}

	if strings.HasPrefix(scheme, srvScheme) && !strings.Contains(query, "retryWrites=true") {
		if query != "" {
			query += "&"
		}
		query += "retryWrites=true&w=majority"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(hosts)
	if path != "" || query != "" {
		b.WriteString("/")
		b.WriteString(path)
	}
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String()
}
