package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/fakebackend"
	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	fb      *fakebackend.Server
	baseURL string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fb, err := fakebackend.New(fakebackend.Options{AccessTTL: time.Minute, BasePath: "/api/v1"})
	require.NoError(t, err)
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return &harness{t: t, fb: fb, baseURL: srv.URL + "/api/v1"}
}

func (h *harness) config() Config {
	return Config{
		BaseURL:           h.baseURL,
		Store:             StoreMemory,
		Profile:           credstore.DefaultProfile,
		CoalesceRefresh:   true,
		UploadParallelism: 2,
	}
}

// session is one CLI user with its own credential store.
type session struct {
	t   *testing.T
	app *App
	out *bytes.Buffer
	err *bytes.Buffer
	in  *bytes.Buffer
}

func (h *harness) session(cfg Config) *session {
	h.t.Helper()
	s := &session{t: h.t, out: &bytes.Buffer{}, err: &bytes.Buffer{}, in: &bytes.Buffer{}}
	a, err := New(cfg, s.in, s.out, s.err, WithLogger(slogx.Discard()))
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = a.Close() })
	s.app = a
	return s
}

func (s *session) run(args ...string) (string, error) {
	s.t.Helper()
	s.out.Reset()
	err := s.app.Run(context.Background(), args)
	return s.out.String(), err
}

func (s *session) must(args ...string) string {
	s.t.Helper()
	out, err := s.run(args...)
	require.NoError(s.t, err, "sharebox %s\nstderr: %s", strings.Join(args, " "), s.err.String())
	return out
}

func (s *session) jsonOut(v any, args ...string) {
	s.t.Helper()
	s.app.cfg.JSON = true
	defer func() { s.app.cfg.JSON = false }()
	require.NoError(s.t, json.Unmarshal([]byte(s.must(args...)), v))
}

func (h *harness) signup(username string) (*session, apiclient.UserDto) {
	h.t.Helper()
	u, err := h.fb.CreateUser(username, username+"@example.com", username+"-pw", false)
	require.NoError(h.t, err)

	s := h.session(h.config())
	s.in.WriteString(username + "-pw\n")
	s.must("login", "--username", username, "--password-stdin")
	return s, u
}

func TestUsage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	s := h.session(h.config())

	_, err := s.run()
	require.ErrorIs(t, err, ErrUsage)
	require.Contains(t, s.err.String(), "Usage: sharebox <command>")

	_, err = s.run("frobnicate")
	require.ErrorIs(t, err, ErrUsage)

	_, err = s.run("files")
	require.ErrorIs(t, err, ErrUsage)
	require.Contains(t, s.err.String(), "Usage: sharebox files <command>")

	_, err = s.run("files", "get")
	require.ErrorIs(t, err, ErrNotLoggedIn, "session gating runs before argument checks")

	_, err = s.run("logout", "extra")
	require.ErrorIs(t, err, ErrUsage)

	require.NoError(t, s.app.Run(context.Background(), []string{"help"}))
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.fb.CreateUser("alice", "alice@example.com", "alice-pw", false)
	require.NoError(t, err)

	s := h.session(h.config())

	_, err = s.run("whoami")
	require.ErrorIs(t, err, ErrNotLoggedIn)

	s.in.WriteString("wrong\n")
	_, err = s.run("login", "--username", "alice", "--password-stdin")
	require.ErrorIs(t, err, apiclient.ErrAPI)
	require.Equal(t, apiclient.MessageInvalidLogin, err.Error())

	s.in.WriteString("alice\nalice-pw\n")
	require.Equal(t, "Logged in as alice\n", s.must("login"))

	_, err = s.run("login", "--username", "alice", "--password", "alice-pw")
	require.ErrorContains(t, err, "already logged in")
	s.must("login", "--username", "alice", "--password", "alice-pw", "--force")

	var me apiclient.UserDto
	s.jsonOut(&me, "whoami")
	require.Equal(t, "alice", me.Username)

	var st sessionStatus
	s.jsonOut(&st, "status")
	require.True(t, st.LoggedIn)
	require.True(t, st.CanRefresh)
	require.Equal(t, "alice", st.Username)
	require.Equal(t, me.ID, st.Subject)
	require.False(t, st.Expired)

	h.fb.ExpireAccessTokens()
	s.must("whoami")
	require.Equal(t, 1, h.fb.Hits("POST /auth/refresh"))

	require.Equal(t, "Logged out\n", s.must("logout"))
	_, err = s.run("whoami")
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	s := h.session(h.config())

	s.in.WriteString("pw\n")
	out := s.must("register", "--username", "bob", "--email", "bob@example.com")
	require.Contains(t, out, "Registered bob")

	_, err := s.run("register", "--username", "bob", "--email", "other@example.com", "--password", "pw")
	require.Equal(t, "Username already exists", err.Error())

	_, err = s.run("register", "--username", "carol")
	require.ErrorIs(t, err, ErrUsage)
}

func TestFilesAndSharing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	alice, _ := h.signup("alice")
	bob, bobUser := h.signup("bob")

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("bravo!"), 0o600))

	var uploaded []apiclient.FileDto
	alice.jsonOut(&uploaded, "files", "upload", a, b)
	require.Len(t, uploaded, 2)
	fileID := uploaded[0].ID

	_, err := alice.run("files", "upload", a, filepath.Join(dir, "missing.txt"))
	require.ErrorContains(t, err, "1 of 2 uploads failed")
	require.Contains(t, alice.err.String(), "missing.txt")

	out := alice.must("files", "list")
	require.Contains(t, out, "a.txt")
	require.Contains(t, out, "6 B")

	var notShared []apiclient.FileDto
	alice.jsonOut(&notShared, "files", "not-shared", bobUser.ID)
	require.Len(t, notShared, 3)

	out = alice.must("share", "user", fileID, "bob@example.com", "--permission", "write")
	require.Equal(t, "Shared a.txt with bob (WRITE)\n", out)

	_, err = alice.run("share", "user", fileID, "bob@example.com", "--permission", "owner")
	require.ErrorIs(t, err, ErrUsage)

	var mine []apiclient.SharedFileWithUserDto
	bob.jsonOut(&mine, "share", "with-me")
	require.Len(t, mine, 1)
	require.Equal(t, apiclient.PermissionWrite, mine[0].Permission)

	var all []apiclient.FileDto
	bob.jsonOut(&all, "files", "list", "--all")
	require.Len(t, all, 1)

	dest := filepath.Join(dir, "copy.txt")
	bob.must("files", "download", fileID, "-o", dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(data))
	require.Contains(t, bob.err.String(), "Saved "+dest)

	require.Equal(t, "alpha", bob.must("files", "download", fileID, "-o", "-"))

	require.NoError(t, os.WriteFile(b, []byte("bravo v2"), 0o600))
	var replaced apiclient.FileDto
	bob.jsonOut(&replaced, "files", "replace", fileID, b)
	require.Equal(t, int32(2), replaced.Version)

	alice.must("share", "revoke-user", fileID, bobUser.ID)
	bob.jsonOut(&mine, "share", "with-me")
	require.Empty(t, mine)

	alice.must("files", "delete", fileID)
	_, err = alice.run("files", "get", fileID)
	require.Equal(t, "File not found", err.Error())
}

func TestGroups(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	alice, _ := h.signup("alice")
	bob, bobUser := h.signup("bob")
	_, carolUser := h.signup("carol")

	var g apiclient.GroupDto
	alice.jsonOut(&g, "groups", "create", "--name", "team", "--member", bobUser.ID)
	require.Len(t, g.UserRoles, 2)

	out := bob.must("groups", "list", "--joined")
	require.Contains(t, out, "team")
	require.Contains(t, out, "joined")

	var owned []apiclient.GroupDto
	bob.jsonOut(&owned, "groups", "list", "--owned")
	require.Empty(t, owned)

	_, err := bob.run("groups", "list", "--owned", "--joined")
	require.ErrorIs(t, err, ErrUsage)

	alice.jsonOut(&g, "groups", "add", g.ID, carolUser.ID)
	require.Len(t, g.UserRoles, 3)
	alice.jsonOut(&g, "groups", "remove", g.ID, carolUser.ID)
	require.Len(t, g.UserRoles, 2)

	alice.jsonOut(&g, "groups", "update", g.ID, "--name", "core", "--description", "the usual")
	require.Equal(t, "core", g.Name)

	var files []apiclient.FileDto
	alice.jsonOut(&files, "files", "upload", writeTemp(t, "plan.md", "# plan"))
	alice.must("share", "group", files[0].ID, g.ID)

	var viaGroups []apiclient.SharedFileWithGroupDto
	bob.jsonOut(&viaGroups, "share", "with-my-groups")
	require.Len(t, viaGroups, 1)
	require.Equal(t, apiclient.PermissionRead, viaGroups[0].Permission)

	var groupFiles []apiclient.FileDto
	bob.jsonOut(&groupFiles, "groups", "files", g.ID)
	require.Len(t, groupFiles, 1)

	alice.must("share", "revoke-group", files[0].ID, g.ID)
	alice.must("groups", "delete", g.ID)
	_, err = bob.run("groups", "get", g.ID)
	require.Equal(t, "Group not found", err.Error())
}

func TestHealthCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	s := h.session(h.config())

	out := s.must("health")
	require.Contains(t, out, "overall")
	require.Contains(t, out, "UP")

	h.fb.SetHealthy(false)
	_, err := s.run("health")
	require.ErrorContains(t, err, "backend is DOWN")
}

func TestSessionEnded(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	s, _ := h.signup("alice")

	h.fb.Advance(8 * 24 * time.Hour)
	_, err := s.run("whoami")
	require.True(t, apiclient.RequiresLogin(err))
	require.Contains(t, Hint(err), "sharebox login")
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.fb.CreateUser("alice", "alice@example.com", "pw", false)
	require.NoError(t, err)

	cfg := h.config()
	cfg.Store = StoreSQLite
	cfg.Database = filepath.Join(t.TempDir(), "sharebox.db")

	work := h.session(cfg)
	_, err = work.run("profiles")
	require.NoError(t, err)

	work.must("login", "--username", "alice", "--password", "pw")

	cfg.Profile = "personal"
	personal := h.session(cfg)
	_, err = personal.run("whoami")
	require.ErrorIs(t, err, ErrNotLoggedIn, "profiles do not share credentials")
	personal.must("login", "--username", "alice", "--password", "pw")

	var profiles []credstore.Profile
	personal.jsonOut(&profiles, "profiles")
	require.Len(t, profiles, 2)
	require.Equal(t, credstore.DefaultProfile, profiles[0].Name)
	require.Equal(t, "personal", profiles[1].Name)
	require.Equal(t, h.baseURL, profiles[1].BaseURL)

	mem := h.session(h.config())
	_, err = mem.run("profiles")
	require.ErrorContains(t, err, "sqlite store")
}

func TestFileStoreSealed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.fb.CreateUser("alice", "alice@example.com", "pw", false)
	require.NoError(t, err)

	cfg := h.config()
	cfg.Store = StoreFile
	cfg.CredentialsFile = filepath.Join(t.TempDir(), "credentials.yaml")
	cfg.Passphrase = "correct horse"

	s := h.session(cfg)
	s.must("login", "--username", "alice", "--password", "pw")

	raw, err := os.ReadFile(cfg.CredentialsFile)
	require.NoError(t, err)
	pair, err := s.app.Client().Session(context.Background())
	require.NoError(t, err)
	require.NotContains(t, string(raw), pair.RefreshToken)

	again := h.session(cfg)
	again.must("whoami")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.example/api/v1\nstore: sqlite\ntimeout: 5s\nupload_parallelism: 8\n"), 0o600))

	t.Setenv("SHAREBOX_STORE", "memory")
	t.Setenv("SHAREBOX_PASSPHRASE", "hunter2")

	fs := pflag.NewFlagSet("sharebox", pflag.ContinueOnError)
	GlobalFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--base-url", "http://flag.example/api/v1", "--json"}))

	cfg, err := LoadConfig(viper.New(), fs)
	require.NoError(t, err)
	require.Equal(t, "http://flag.example/api/v1", cfg.BaseURL, "flags beat the file")
	require.Equal(t, StoreMemory, cfg.Store, "env beats the file")
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, 8, cfg.UploadParallelism)
	require.True(t, cfg.JSON)
	require.True(t, cfg.CoalesceRefresh)
	require.Equal(t, path, cfg.ConfigFileUsed)
	require.Equal(t, "********", cfg.Redacted().Passphrase)

	t.Run("missing explicit file", func(t *testing.T) {
		fs := pflag.NewFlagSet("sharebox", pflag.ContinueOnError)
		GlobalFlags(fs)
		require.NoError(t, fs.Parse([]string{"--config", filepath.Join(dir, "nope.yaml")}))
		_, err := LoadConfig(viper.New(), fs)
		require.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("SHAREBOX_CONFIG", path)
		t.Setenv("SHAREBOX_STORE", "redis")
		_, err := LoadConfig(viper.New(), nil)
		require.ErrorContains(t, err, `unknown store "redis"`)
	})
}

func TestConfigShow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cfg := h.config()
	cfg.Passphrase = "secret"
	cfg.Timeout = 30 * time.Second
	s := h.session(cfg)

	out := s.must("config", "show")
	require.Contains(t, out, h.baseURL)
	require.Contains(t, out, "timeout: 30s")
	require.Contains(t, out, "********")
	require.NotContains(t, out, "secret")
}

func TestSafeName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "report.pdf", safeName("report.pdf", "id"))
	require.Equal(t, "passwd", safeName("../../etc/passwd", "id"))
	require.Equal(t, "id", safeName("", "id"))
	require.Equal(t, "id", safeName("/", "id"))
}

func TestHumanSize(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0 B", humanSize(0))
	require.Equal(t, "1023 B", humanSize(1023))
	require.Equal(t, "1.0 KiB", humanSize(1024))
	require.Equal(t, "1.5 MiB", humanSize(3<<19))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestBackendAnswersWithoutBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "empty 200", status: http.StatusOK, want: apiclient.ErrDecode},
		{name: "204", status: http.StatusNoContent, want: apiclient.ErrNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			srv := httptest.NewServer(mux)
			t.Cleanup(srv.Close)

			cfg := Config{BaseURL: srv.URL, Store: StoreMemory, Profile: credstore.DefaultProfile, UploadParallelism: 1}
			store := credstore.NewMemory(credstore.TokenPair{AccessToken: "a1", RefreshToken: "r1"})
			a, err := New(cfg, &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}, WithStore(store), WithLogger(slogx.Discard()))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			for _, args := range [][]string{
				{"files", "list", "--all"},
				{"whoami"},
				{"groups", "list"},
				{"users", "email", "new@example.com"},
			} {
				err := a.Run(context.Background(), args)
				require.ErrorIs(t, err, tt.want, strings.Join(args, " "))
			}
		})
	}
}
