package unlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Auditor writes one-off per-event records next to the unlock indexes:
//
//	data/meditation-unlocks/<sessionId>.json
//	data/meditation-unlocks/promo-<code>-<email>-<ts>.json
//
// The records exist for audit only; no code path reads them back. Audit
// failures should therefore not fail the unlock itself.
type Auditor struct {
	dir string
}

// NewAuditor creates an Auditor rooted at the same data directory as the
// file store.
func NewAuditor(dir string) *Auditor {
	return &Auditor{dir: dir}
}

// WriteRecord writes payload as <dir>/<contentType>-unlocks/<name>.json.
func (a *Auditor) WriteRecord(contentType, name string, payload any) error {
	dir := filepath.Join(a.dir, contentType+"-unlocks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir for %s: %w", contentType, err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit record %s: %w", name, err)
	}

	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audit record %s: %w", name, err)
	}
	return nil
}
