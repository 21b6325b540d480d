package pipeline

import (
	"strings"

	"github.com/matheus3301/waforensic/internal/acquire"
)

// selection names the acquired files a run works on.
type selection struct {
	database string
	key      string
	contacts string
}

// auxiliary databases never hold messages.
var auxiliary = map[string]bool{
	"wa.db":           true,
	"axolotl.db":      true,
	"chatsettings.db": true,
}

func isMsgstore(name string) bool { return strings.HasPrefix(name, "msgstore") }

// selectArtifacts picks the message database, key and contacts database.
// An explicitly given single file is used as the database whatever its
// name. Otherwise an encrypted msgstore wins over a plaintext one, and the
// canonical msgstore.db.cryptNN name wins over dated backups.
func selectArtifacts(sum *acquire.Summary, files acquire.Files, opts Options) selection {
	var sel selection
	if opts.Key != "" {
		sel.key = files[opts.Key]
	} else if a, ok := sum.Find(acquire.KindKey, func(string) bool { return true }); ok {
		sel.key = a.Path
	}
	if opts.Contacts != "" {
		sel.contacts = files[opts.Contacts]
	} else if a, ok := sum.Find(acquire.KindDatabase, func(n string) bool { return n == "wa.db" }); ok {
		sel.contacts = a.Path
	}

	if opts.Source == acquire.SourceFile {
		if dst, ok := files[opts.Input]; ok {
			sel.database = dst
			return sel
		}
	}

	canonical := func(n string) bool { return strings.HasPrefix(n, "msgstore.db.crypt") }
	candidates := []struct {
		kind  acquire.Kind
		match func(string) bool
	}{
		{acquire.KindEncrypted, canonical},
		{acquire.KindEncrypted, isMsgstore},
		{acquire.KindDatabase, func(n string) bool { return n == "msgstore.db" }},
		{acquire.KindEncrypted, func(string) bool { return true }},
		{acquire.KindDatabase, func(n string) bool { return !auxiliary[n] }},
	}
	for _, c := range candidates {
		if a, ok := sum.Find(c.kind, c.match); ok {
			sel.database = a.Path
			return sel
		}
	}
	return sel
}
