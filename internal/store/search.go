package store

import (
	"strings"
	"unicode/utf8"
)

const snippetRadius = 32

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchMessages finds messages whose body or media caption contains query,
// ignoring ASCII case. Results are oldest first.
func (db *DB) SearchMessages(query string, chatJID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"

	q := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (body LIKE ? ESCAPE '\' OR media_caption LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if chatJID != "" {
		q += " AND chat_jid = ?"
		args = append(args, chatJID)
	}
	q += " ORDER BY timestamp ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := scanMessage(rows, &r.Message); err != nil {
			return nil, err
		}
		text := r.Message.Body
		if !containsFold(text, query) {
			text = r.Message.MediaCaption
		}
		r.Snippet = snippet(text, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// snippet returns the match surrounded by up to snippetRadius bytes of
// context, marked with << and >>.
func snippet(text, query string) string {
	i := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if i < 0 || query == "" || len(strings.ToLower(text)) != len(text) {
		return text
	}
	end := i + len(query)
	start := max(0, i-snippetRadius)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	stop := min(len(text), end+snippetRadius)
	for stop < len(text) && !utf8.RuneStart(text[stop]) {
		stop++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[start:i])
	b.WriteString("<<")
	b.WriteString(text[i:end])
	b.WriteString(">>")
	b.WriteString(text[end:stop])
	if stop < len(text) {
		b.WriteString("...")
	}
	return b.String()
}
