package opendkim

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milterops/opendkimctl/internal/secrets"
)

const (
	// MilterPort is the inbound milter port the daemon listens on and the
	// value published to every registered milter consumer.
	MilterPort = 8892

	// DefaultKeysDir holds private keys and the signing/key table files.
	DefaultKeysDir = "/etc/dkimkeys"

	// DefaultConfigPath is the primary daemon configuration file.
	DefaultConfigPath = "/etc/opendkim.conf"

	// DefaultOwner is the system user owning all rendered files.
	DefaultOwner = "opendkim"
)

// DefaultSignHeaders is the recommended header set from RFC 6376 section 5.4.
const DefaultSignHeaders = "From,Reply-To,Subject,Date,To,Cc" +
	",Resent-From,Resent-Date,Resent-To,Resent-Cc" +
	",In-Reply-To,References" +
	",MIME-Version,Message-ID,Content-Type"

const (
	defaultCanonicalization = "relaxed/relaxed"
	defaultInternalHosts    = "0.0.0.0/0"
	defaultMode             = "sv"
)

// Inputs are the raw desired-state values as they arrive from the operator
// configuration, before any parsing or secret resolution.
type Inputs struct {
	SigningTable   string // YAML document: sequence of [pattern, selectorRef]
	KeyTable       string // YAML document: sequence of 2..4 string elements
	PrivateKeysRef string // secret reference, optionally "secret:" prefixed

	// Optional overrides; empty means default.
	Canonicalization string
	Mode             string
	InternalHosts    string
	SignHeaders      string

	KeysDir    string
	ConfigPath string
	Owner      string
}

// ValidationError aggregates every field-level problem found while
// validating the desired-state inputs. The reconciler surfaces the joined
// message verbatim in the blocked status.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Fields, " - ")
}

// Config is the validated workload configuration for one reconciliation
// cycle. It is built fresh each cycle and never shared across cycles.
type Config struct {
	Canonicalization string
	Socket           string
	SignHeaders      string
	InternalHosts    string
	Mode             string
	SigningTable     [][]string
	KeyTable         [][]string
	PrivateKeys      map[string]string

	KeysDir    string
	ConfigPath string
	Owner      string
}

// SigningEnabled reports whether the daemon signs outgoing mail, derived
// from the mode flags ("s" sign, "v" verify).
func (c *Config) SigningEnabled() bool {
	return strings.Contains(c.Mode, "s")
}

// SigningTablePath is the rendered signing table location.
func (c *Config) SigningTablePath() string {
	return filepath.Join(c.KeysDir, "signingtable")
}

// KeyTablePath is the rendered key table location.
func (c *Config) KeyTablePath() string {
	return filepath.Join(c.KeysDir, "keytable")
}

// KeyPath returns the on-disk location for a named private key.
func (c *Config) KeyPath(name string) string {
	return filepath.Join(c.KeysDir, name+".private")
}

// ConfigFromInputs parses and validates the raw desired-state inputs and
// resolves the private key material through the given resolver.
//
// Input parsing errors are accumulated so a single blocked status can name
// every bad field at once. A resolver failure is returned as a plain error:
// it is a collaborator fault, not a configuration problem.
func ConfigFromInputs(ctx context.Context, in Inputs, resolver secrets.Resolver) (*Config, error) {
	var fields []string

	signingTable, err := parseTable(in.SigningTable, "signingtable")
	if err != nil {
		fields = append(fields, err.Error())
	}

	keyTable, err := parseTable(in.KeyTable, "keytable")
	if err != nil {
		fields = append(fields, err.Error())
	}

	ref := strings.TrimSpace(in.PrivateKeysRef)
	if ref == "" {
		fields = append(fields, "empty private_keys configuration")
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ref = strings.TrimPrefix(ref, "secret:")
	privateKeys, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving private keys %q: %w", ref, err)
	}

	cfg := &Config{
		Canonicalization: orDefault(in.Canonicalization, defaultCanonicalization),
		Socket:           fmt.Sprintf("inet:%d", MilterPort),
		SignHeaders:      orDefault(in.SignHeaders, DefaultSignHeaders),
		InternalHosts:    orDefault(in.InternalHosts, defaultInternalHosts),
		Mode:             orDefault(in.Mode, defaultMode),
		SigningTable:     signingTable,
		KeyTable:         keyTable,
		PrivateKeys:      privateKeys,
		KeysDir:          orDefault(in.KeysDir, DefaultKeysDir),
		ConfigPath:       orDefault(in.ConfigPath, DefaultConfigPath),
		Owner:            orDefault(in.Owner, DefaultOwner),
	}

	if fields := cfg.check(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return cfg, nil
}

// check validates the assembled configuration, returning one message per
// invalid field in a stable order.
func (c *Config) check() []string {
	var fields []string

	if len(c.SigningTable) == 0 {
		fields = append(fields, "empty signingtable")
	}
	for i, row := range c.SigningTable {
		if len(row) != 2 {
			fields = append(fields, fmt.Sprintf("signingtable row %d: want 2 fields, got %d", i+1, len(row)))
		}
	}

	if len(c.KeyTable) == 0 {
		fields = append(fields, "empty keytable")
	}
	for i, row := range c.KeyTable {
		if len(row) < 2 || len(row) > 4 {
			fields = append(fields, fmt.Sprintf("keytable row %d: want 2 to 4 fields, got %d", i+1, len(row)))
		}
	}

	if len(c.PrivateKeys) == 0 {
		fields = append(fields, "empty private_keys")
	}
	for _, name := range sortedKeys(c.PrivateKeys) {
		if strings.ContainsAny(name, `/\`) {
			fields = append(fields, fmt.Sprintf("private key name %q contains a path separator", name))
		}
	}

	// Key table rows referencing files under the managed keys directory
	// must match a resolved private key. References outside the keys
	// directory are left to opendkim-testkey to judge.
	for i, row := range c.KeyTable {
		if len(row) < 2 {
			continue
		}
		keyFile := keyFileRef(row)
		dir, file := filepath.Split(keyFile)
		if filepath.Clean(dir) != c.KeysDir || !strings.HasSuffix(file, ".private") {
			continue
		}
		name := strings.TrimSuffix(file, ".private")
		if _, ok := c.PrivateKeys[name]; !ok {
			fields = append(fields, fmt.Sprintf("keytable row %d references unknown private key %q", i+1, name))
		}
	}

	return fields
}

// keyFileRef extracts the private key file location from a key table row.
// The compact form packs "domain:selector:path" into the second field; the
// expanded form carries the path as the final field.
func keyFileRef(row []string) string {
	if len(row) == 2 {
		parts := strings.Split(row[1], ":")
		return parts[len(parts)-1]
	}
	return row[len(row)-1]
}

func parseTable(doc, name string) ([][]string, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("empty %s configuration", name)
	}
	var rows [][]string
	if err := yaml.Unmarshal([]byte(doc), &rows); err != nil {
		return nil, fmt.Errorf("wrong %s format", name)
	}
	return rows, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
