package reconciler

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milterops/opendkimctl/internal/opendkim"
	"github.com/milterops/opendkimctl/internal/relation"
)

type fakeResolver struct {
	keys map[string]string
	err  error
}

func (f *fakeResolver) Resolve(context.Context, string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}

type fakePeer struct {
	name  string
	local map[string]string
	err   error
}

func (p *fakePeer) Name() string { return p.name }

func (p *fakePeer) SetLocal(key, value string) error {
	if p.err != nil {
		return p.err
	}
	if p.local == nil {
		p.local = map[string]string{}
	}
	p.local[key] = value
	return nil
}

type fakeRegistry struct {
	peers []relation.Peer
	err   error
}

func (r *fakeRegistry) List() ([]relation.Peer, error) {
	return r.peers, r.err
}

type fakeFiles struct {
	files    map[string]string
	modes    map[string]fs.FileMode
	owners   map[string]string
	writeErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		files:  map[string]string{},
		modes:  map[string]fs.FileMode{},
		owners: map[string]string{},
	}
}

func (f *fakeFiles) WriteFile(path, content string, mode fs.FileMode, owner string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[path] = content
	f.modes[path] = mode
	f.owners[path] = owner
	return nil
}

func (f *fakeFiles) ReadFile(path string) (string, error) {
	return f.files[path], nil
}

type fakeService struct {
	restarts   int
	reloads    int
	restartErr error
	reloadErr  error
}

func (s *fakeService) Restart(context.Context, string) error {
	if s.restartErr != nil {
		return s.restartErr
	}
	s.restarts++
	return nil
}

func (s *fakeService) Reload(context.Context, string) error {
	if s.reloadErr != nil {
		return s.reloadErr
	}
	s.reloads++
	return nil
}

type fakeChecker struct {
	calls int
	err   error
}

func (c *fakeChecker) Check(context.Context, string, time.Duration) error {
	c.calls++
	return c.err
}

type fixture struct {
	resolver *fakeResolver
	registry *fakeRegistry
	files    *fakeFiles
	service  *fakeService
	checker  *fakeChecker
	peer     *fakePeer
}

func newFixture() *fixture {
	peer := &fakePeer{name: "postfix"}
	return &fixture{
		resolver: &fakeResolver{keys: map[string]string{"k1": "PEMDATA"}},
		registry: &fakeRegistry{peers: []relation.Peer{peer}},
		files:    newFakeFiles(),
		service:  &fakeService{},
		checker:  &fakeChecker{},
		peer:     peer,
	}
}

func (f *fixture) reconciler() *Reconciler {
	return New(Deps{
		Secrets:   f.resolver,
		Relations: f.registry,
		Files:     f.files,
		Service:   f.service,
		Checker:   f.checker,
	})
}

func inputs() opendkim.Inputs {
	return opendkim.Inputs{
		SigningTable:   `[["*@example.com", "sel._domainkey.example.com"]]`,
		KeyTable:       `[["sel._domainkey.example.com", "example.com:sel:/etc/dkimkeys/k1.private"]]`,
		PrivateKeysRef: "secret:dkim-keys",
	}
}

func TestReconcileConverges(t *testing.T) {
	f := newFixture()
	outcome := f.reconciler().Reconcile(context.Background(), inputs())

	assert.Equal(t, Converged, outcome.Kind)
	assert.NotEmpty(t, outcome.CycleID)

	assert.Equal(t, "PEMDATA", f.files.files["/etc/dkimkeys/k1.private"])
	assert.Equal(t, fs.FileMode(0o600), f.files.modes["/etc/dkimkeys/k1.private"])
	assert.Equal(t, "opendkim", f.files.owners["/etc/dkimkeys/k1.private"])
	assert.Equal(t, "*@example.com sel._domainkey.example.com", f.files.files["/etc/dkimkeys/signingtable"])
	assert.Equal(t, "sel._domainkey.example.com example.com:sel:/etc/dkimkeys/k1.private", f.files.files["/etc/dkimkeys/keytable"])
	assert.Contains(t, f.files.files["/etc/opendkim.conf"], "Canonicalization\trelaxed/relaxed")

	assert.Equal(t, map[string]string{"port": "8892"}, f.peer.local)
	assert.Equal(t, 1, f.service.restarts)
	assert.Equal(t, 1, f.service.reloads)
	assert.Equal(t, 1, f.checker.calls)
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture()
	rec := f.reconciler()

	first := rec.Reconcile(context.Background(), inputs())
	require.Equal(t, Converged, first.Kind)
	require.Equal(t, 1, f.service.restarts)

	second := rec.Reconcile(context.Background(), inputs())
	assert.Equal(t, Converged, second.Kind)

	// Unchanged content: no second restart, but reload still runs.
	assert.Equal(t, 1, f.service.restarts)
	assert.Equal(t, 2, f.service.reloads)
}

func TestReconcileDriftTriggersRestart(t *testing.T) {
	f := newFixture()
	rec := f.reconciler()
	require.Equal(t, Converged, rec.Reconcile(context.Background(), inputs()).Kind)
	require.Equal(t, 1, f.service.restarts)

	changed := inputs()
	changed.Canonicalization = "simple/simple"
	assert.Equal(t, Converged, rec.Reconcile(context.Background(), changed).Kind)
	assert.Equal(t, 2, f.service.restarts)
	assert.Contains(t, f.files.files["/etc/opendkim.conf"], "simple/simple")
}

func TestReconcileWaitsForRelation(t *testing.T) {
	f := newFixture()
	f.registry.peers = nil

	outcome := f.reconciler().Reconcile(context.Background(), inputs())

	assert.Equal(t, WaitingForRelation, outcome.Kind)
	assert.Empty(t, f.files.files, "no artifact may be written without a relation")
	assert.Equal(t, 0, f.service.restarts)
	assert.Equal(t, 0, f.service.reloads)
	assert.Equal(t, 0, f.checker.calls)
}

func TestReconcilePublishesPortToEveryPeer(t *testing.T) {
	f := newFixture()
	other := &fakePeer{name: "exim"}
	f.registry.peers = append(f.registry.peers, other)

	outcome := f.reconciler().Reconcile(context.Background(), inputs())

	require.Equal(t, Converged, outcome.Kind)
	assert.Equal(t, "8892", f.peer.local["port"])
	assert.Equal(t, "8892", other.local["port"])
}

func TestReconcileInvalidConfigAggregates(t *testing.T) {
	f := newFixture()

	outcome := f.reconciler().Reconcile(context.Background(), opendkim.Inputs{})

	assert.Equal(t, InvalidConfig, outcome.Kind)
	assert.Contains(t, outcome.Reason, "empty signingtable configuration")
	assert.Contains(t, outcome.Reason, "empty keytable configuration")
	assert.Contains(t, outcome.Reason, "empty private_keys configuration")
	assert.Empty(t, f.files.files)
}

func TestReconcileExternalValidationFailure(t *testing.T) {
	f := newFixture()
	f.checker.err = errors.New("opendkim-testkey: key not secure")

	outcome := f.reconciler().Reconcile(context.Background(), inputs())

	assert.Equal(t, ExternalValidationFailed, outcome.Kind)
	assert.Contains(t, outcome.Reason, "key not secure")
}

func TestReconcileCollaboratorFailures(t *testing.T) {
	t.Run("secret resolution", func(t *testing.T) {
		f := newFixture()
		f.resolver.err = errors.New("store unreachable")
		outcome := f.reconciler().Reconcile(context.Background(), inputs())
		assert.Equal(t, CollaboratorFailure, outcome.Kind)
		assert.Contains(t, outcome.Reason, "store unreachable")
	})

	t.Run("file write", func(t *testing.T) {
		f := newFixture()
		f.files.writeErr = errors.New("disk full")
		outcome := f.reconciler().Reconcile(context.Background(), inputs())
		assert.Equal(t, CollaboratorFailure, outcome.Kind)
		assert.Contains(t, outcome.Reason, "disk full")
	})

	t.Run("service restart", func(t *testing.T) {
		f := newFixture()
		f.service.restartErr = errors.New("unit not found")
		outcome := f.reconciler().Reconcile(context.Background(), inputs())
		assert.Equal(t, CollaboratorFailure, outcome.Kind)
		assert.Equal(t, 0, f.checker.calls)
	})

	t.Run("relation listing", func(t *testing.T) {
		f := newFixture()
		f.registry.err = errors.New("registry unavailable")
		outcome := f.reconciler().Reconcile(context.Background(), inputs())
		assert.Equal(t, CollaboratorFailure, outcome.Kind)
		assert.Empty(t, f.files.files)
	})
}

func TestNeedsRestart(t *testing.T) {
	assert.True(t, NeedsRestart("B", "A"))
	assert.True(t, NeedsRestart("A", ""), "absent previous file reads as empty")
	assert.False(t, NeedsRestart("A", "A"))
	assert.False(t, NeedsRestart("", ""))
}

func TestReportStatus(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Status
	}{
		{Outcome{Kind: Converged}, Status{State: StateActive}},
		{Outcome{Kind: WaitingForRelation, Reason: "missing milter relations"}, Status{State: StateBlocked, Message: "missing milter relations"}},
		{Outcome{Kind: InvalidConfig, Reason: "empty signingtable"}, Status{State: StateBlocked, Message: "empty signingtable"}},
		{Outcome{Kind: ExternalValidationFailed, Reason: "key not secure"}, Status{State: StateBlocked, Message: "key not secure"}},
		{Outcome{Kind: CollaboratorFailure, Reason: "disk full"}, Status{State: StateBlocked, Message: "disk full"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Report(tc.outcome), "outcome %s", tc.outcome.Kind)
	}
}
