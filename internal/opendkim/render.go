package opendkim

import (
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

// Artifact is one file the reconciler writes to converge the daemon to the
// desired state. Artifacts are constructed fresh each cycle.
type Artifact struct {
	Path    string
	Content string
	Mode    fs.FileMode
	Owner   string
}

// Primary reports whether this artifact is the main daemon configuration
// file, the only artifact participating in the restart decision.
func (a Artifact) Primary(cfg *Config) bool {
	return a.Path == cfg.ConfigPath
}

// confTemplate renders opendkim.conf(5). Substitution only; any control
// flow beyond the signing-table toggle stays out of the template.
const confTemplate = `# Managed by opendkimctl. Manual changes will be overwritten.
Syslog			yes
SyslogSuccess		yes
Canonicalization	{{.Canonicalization}}
Mode			{{.Mode}}
Socket			{{.Socket}}
SignHeaders		{{.SignHeaders}}
InternalHosts		{{.InternalHosts}}
UserID			{{.UserID}}
UMask			007
{{if .SigningEnabled}}KeyTable		{{.KeyTablePath}}
SigningTable		refile:{{.SigningTablePath}}
{{end}}`

var confTmpl = template.Must(template.New("opendkim.conf").Parse(confTemplate))

// RenderArtifacts produces the full artifact set for a validated
// configuration: one file per private key, the signing table, the key
// table, and finally the main daemon configuration. The result is
// deterministic: identical configurations render byte-identical sets.
func RenderArtifacts(cfg *Config) ([]Artifact, error) {
	var artifacts []Artifact

	for _, name := range sortedKeys(cfg.PrivateKeys) {
		artifacts = append(artifacts, Artifact{
			Path:    cfg.KeyPath(name),
			Content: cfg.PrivateKeys[name],
			Mode:    0o600,
			Owner:   cfg.Owner,
		})
	}

	artifacts = append(artifacts,
		Artifact{
			Path:    cfg.SigningTablePath(),
			Content: joinTable(cfg.SigningTable),
			Mode:    0o644,
			Owner:   cfg.Owner,
		},
		Artifact{
			Path:    cfg.KeyTablePath(),
			Content: joinTable(cfg.KeyTable),
			Mode:    0o644,
			Owner:   cfg.Owner,
		},
	)

	conf, err := RenderMainConfig(cfg)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, Artifact{
		Path:    cfg.ConfigPath,
		Content: conf,
		Mode:    0o644,
		Owner:   cfg.Owner,
	})

	return artifacts, nil
}

// RenderMainConfig renders the primary daemon configuration file from a
// flat field map.
func RenderMainConfig(cfg *Config) (string, error) {
	context := map[string]any{
		"Canonicalization": cfg.Canonicalization,
		"Mode":             cfg.Mode,
		"Socket":           cfg.Socket,
		"SignHeaders":      cfg.SignHeaders,
		"InternalHosts":    cfg.InternalHosts,
		"UserID":           cfg.Owner,
		"SigningEnabled":   cfg.SigningEnabled(),
		"SigningTablePath": cfg.SigningTablePath(),
		"KeyTablePath":     cfg.KeyTablePath(),
	}

	var sb strings.Builder
	if err := confTmpl.Execute(&sb, context); err != nil {
		return "", fmt.Errorf("rendering opendkim.conf: %w", err)
	}
	return sb.String(), nil
}

// joinTable renders table rows with fields space-joined, one row per line,
// preserving input order.
func joinTable(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}
