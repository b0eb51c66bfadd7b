package apiclient_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/fakebackend"
	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const basePath = "/api/v1"

type env struct {
	fb      *fakebackend.Server
	baseURL string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	fb, err := fakebackend.New(fakebackend.Options{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BasePath:   basePath,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	return &env{fb: fb, baseURL: srv.URL + basePath}
}

// login registers username and returns a logged-in client and the user.
func (e *env) login(t *testing.T, username string) (*apiclient.Client, *apiclient.UserDto) {
	t.Helper()
	ctx := context.Background()

	client := apiclient.New(e.baseURL, credstore.NewMemory(credstore.TokenPair{}),
		apiclient.WithLogger(slogx.Discard()))

	require.NoError(t, client.Register(ctx, apiclient.UserCreateRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: username + "-pw",
	}))
	_, err := client.Authenticate(ctx, username, username+"-pw")
	require.NoError(t, err)

	me, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	return client, me
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	client, me := e.login(t, "alice")
	require.Equal(t, "alice", me.Username)
	require.Contains(t, me.Roles, apiclient.RoleUser)

	t.Run("duplicate registration", func(t *testing.T) {
		err := client.Register(ctx, apiclient.UserCreateRequest{Username: "alice", Email: "x@example.com", Password: "pw"})
		require.ErrorIs(t, err, apiclient.ErrAPI)
		require.Equal(t, "Username already exists", err.Error())
		require.Equal(t, http.StatusConflict, apiclient.StatusCode(err))
	})

	t.Run("wrong password", func(t *testing.T) {
		store := credstore.NewMemory(credstore.TokenPair{})
		other := apiclient.New(e.baseURL, store, apiclient.WithLogger(slogx.Discard()))

		_, err := other.Authenticate(ctx, "alice", "nope")
		require.ErrorIs(t, err, apiclient.ErrAPI)
		require.Equal(t, apiclient.MessageInvalidLogin, err.Error())
		require.Zero(t, store.Saves())
	})

	t.Run("logout", func(t *testing.T) {
		store := credstore.NewMemory(credstore.TokenPair{})
		other := apiclient.New(e.baseURL, store, apiclient.WithLogger(slogx.Discard()))
		_, err := other.Authenticate(ctx, "alice", "alice-pw")
		require.NoError(t, err)

		ok, err := other.LoggedIn(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, other.Logout(ctx))
		_, err = other.Session(ctx)
		require.ErrorIs(t, err, credstore.ErrNotFound)

		_, err = other.CurrentUser(ctx)
		require.ErrorIs(t, err, apiclient.ErrAPI)
		require.Equal(t, "Missing bearer token", err.Error())
	})
}

func TestTransparentRefresh(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	client, _ := e.login(t, "alice")
	before, err := client.Session(ctx)
	require.NoError(t, err)

	e.fb.ExpireAccessTokens()

	files, err := client.ListMyFiles(ctx)
	require.NoError(t, err)
	require.Empty(t, files)
	require.Equal(t, 1, e.fb.Hits("POST /auth/refresh"))
	require.Equal(t, 2, e.fb.Hits("GET /files/user"))

	after, err := client.Session(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken, "refresh tokens rotate")

	t.Run("refresh token expired", func(t *testing.T) {
		e.fb.Advance(2 * time.Hour)

		_, err := client.ListMyFiles(ctx)
		require.ErrorIs(t, err, apiclient.ErrRefreshFailed)
		require.True(t, apiclient.RequiresLogin(err))

		unchanged, err := client.Session(ctx)
		require.NoError(t, err)
		require.Equal(t, after, unchanged)
	})
}

func TestFiles(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice, aliceUser := e.login(t, "alice")
	bob, bobUser := e.login(t, "bob")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("first draft"), 0o600))

	uploaded, err := alice.UploadFile(ctx, aliceUser.ID, apiclient.FileFromPath("file", path))
	require.NoError(t, err)
	require.Equal(t, "notes.txt", uploaded.Filename)
	require.Equal(t, int64(len("first draft")), uploaded.Size)
	require.Equal(t, int32(1), uploaded.Version)
	require.Equal(t, aliceUser.ID, uploaded.Owner.ID)

	t.Run("list and get", func(t *testing.T) {
		files, err := alice.ListMyFiles(ctx)
		require.NoError(t, err)
		require.Len(t, files, 1)

		got, err := alice.GetFile(ctx, uploaded.ID)
		require.NoError(t, err)
		require.Equal(t, uploaded.ID, got.ID)
	})

	t.Run("others cannot read", func(t *testing.T) {
		_, err := bob.GetFile(ctx, uploaded.ID)
		require.ErrorIs(t, err, apiclient.ErrAPI)
		require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))
	})

	t.Run("replace", func(t *testing.T) {
		replaced, err := alice.ReplaceFile(ctx, uploaded.ID, apiclient.FileFromBytes("file", "notes.txt", []byte("second draft")))
		require.NoError(t, err)
		require.Equal(t, int32(2), replaced.Version)

		blob, err := alice.DownloadFile(ctx, uploaded.ID)
		require.NoError(t, err)
		require.Equal(t, "second draft", string(blob.Data))
		require.Equal(t, "notes.txt", blob.Filename)
	})

	t.Run("share by email", func(t *testing.T) {
		notShared, err := alice.ListFilesNotSharedWith(ctx, bobUser.ID)
		require.NoError(t, err)
		require.Len(t, notShared, 1)

		share, err := alice.ShareWithUserByEmail(ctx, uploaded.ID, "bob@example.com", apiclient.PermissionRead)
		require.NoError(t, err)
		require.Equal(t, bobUser.ID, share.SharedWith.ID)
		require.Equal(t, apiclient.PermissionRead, share.Permission)

		mine, err := bob.ListSharedWithMe(ctx)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		require.Equal(t, uploaded.ID, mine[0].File.ID)

		var buf bytes.Buffer
		_, err = bob.StreamFile(ctx, uploaded.ID, &buf)
		require.NoError(t, err)
		require.Equal(t, "second draft", buf.String())

		all, err := bob.ListAllFiles(ctx, bobUser.ID)
		require.NoError(t, err)
		require.Len(t, all, 1)

		_, err = bob.ReplaceFile(ctx, uploaded.ID, apiclient.FileFromBytes("file", "x.txt", []byte("x")))
		require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err), "read permission cannot write")

		notShared, err = alice.ListFilesNotSharedWith(ctx, bobUser.ID)
		require.NoError(t, err)
		require.Empty(t, notShared)

		require.NoError(t, alice.UnshareWithUser(ctx, bobUser.ID, uploaded.ID))
		mine, err = bob.ListSharedWithMe(ctx)
		require.NoError(t, err)
		require.Empty(t, mine)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := alice.ShareWithUserByEmail(ctx, uploaded.ID, "nobody@example.com", apiclient.PermissionRead)
		require.ErrorIs(t, err, apiclient.ErrAPI)
		require.Equal(t, "User not found", err.Error())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, alice.DeleteFile(ctx, uploaded.ID))
		_, err := alice.GetFile(ctx, uploaded.ID)
		require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
	})
}

func TestUploadFiles(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice, me := e.login(t, "alice")

	broken := apiclient.FormFile{
		Filename: "broken.bin",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("disk on fire")
		},
	}
	files := []apiclient.FormFile{
		apiclient.FileFromBytes("file", "a.txt", []byte("a")),
		broken,
		apiclient.FileFromBytes("file", "c.txt", []byte("ccc")),
	}

	results := alice.UploadFiles(ctx, me.ID, files, 2)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.Equal(t, "a.txt", results[0].File.Filename)
	require.Error(t, results[1].Err)
	require.Equal(t, "broken.bin", results[1].Filename)
	require.NoError(t, results[2].Err)
	require.Equal(t, int64(3), results[2].File.Size)

	listed, err := alice.ListMyFiles(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestGroups(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice, aliceUser := e.login(t, "alice")
	bob, bobUser := e.login(t, "bob")
	_, carolUser := e.login(t, "carol")

	team, err := alice.CreateGroup(ctx, apiclient.CreateGroupRequest{
		Name:      "team",
		OwnerID:   aliceUser.ID,
		UserRoles: []apiclient.CreateUserGroupRoleDto{{ID: bobUser.ID, Role: apiclient.GroupRoleMember}},
	})
	require.NoError(t, err)
	require.Len(t, team.UserRoles, 2)

	bobsOwn, err := bob.CreateGroup(ctx, apiclient.CreateGroupRequest{Name: "bob-only", OwnerID: bobUser.ID})
	require.NoError(t, err)

	t.Run("owned and joined", func(t *testing.T) {
		groups, err := bob.ListMyGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)

		owned, joined := apiclient.PartitionGroups(bobUser.ID, groups)
		require.Len(t, owned, 1)
		require.Equal(t, bobsOwn.ID, owned[0].ID)
		require.Len(t, joined, 1)
		require.Equal(t, team.ID, joined[0].ID)
	})

	t.Run("membership", func(t *testing.T) {
		g, err := alice.AddUsersToGroup(ctx, team.ID, []string{carolUser.ID})
		require.NoError(t, err)
		require.Len(t, g.UserRoles, 3)

		_, err = bob.AddUsersToGroup(ctx, team.ID, []string{carolUser.ID})
		require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err), "members cannot add members")

		g, err = alice.RemoveUsersFromGroup(ctx, team.ID, []string{carolUser.ID})
		require.NoError(t, err)
		require.Len(t, g.UserRoles, 2)

		_, err = alice.RemoveUsersFromGroup(ctx, team.ID, []string{aliceUser.ID})
		require.Equal(t, "The founder cannot be removed", err.Error())
	})

	t.Run("update", func(t *testing.T) {
		g, err := alice.UpdateGroup(ctx, apiclient.GroupUpdateRequest{ID: team.ID, Name: "core team", Description: "the usual"})
		require.NoError(t, err)
		require.Equal(t, "core team", g.Name)

		got, err := bob.GetGroup(ctx, team.ID)
		require.NoError(t, err)
		require.Equal(t, "the usual", got.Description)
	})

	t.Run("group sharing", func(t *testing.T) {
		f, err := alice.UploadFile(ctx, aliceUser.ID, apiclient.FileFromBytes("file", "plan.md", []byte("# plan")))
		require.NoError(t, err)

		share, err := alice.ShareWithGroup(ctx, apiclient.FileSharingWithGroupRequest{
			FileID: f.ID, GroupID: team.ID, Permission: apiclient.PermissionWrite,
		})
		require.NoError(t, err)
		require.Equal(t, team.ID, share.Group.ID)

		viaGroups, err := bob.ListSharedWithMyGroups(ctx)
		require.NoError(t, err)
		require.Len(t, viaGroups, 1)

		g, err := bob.GetGroup(ctx, team.ID)
		require.NoError(t, err)
		files := apiclient.GroupFiles(*g)
		require.Len(t, files, 1)
		require.Equal(t, "plan.md", files[0].Filename)

		_, err = bob.ReplaceFile(ctx, f.ID, apiclient.FileFromBytes("file", "plan.md", []byte("# better plan")))
		require.NoError(t, err, "write permission through the group")

		forGroup, err := alice.ListSharedWithGroup(ctx, team.ID)
		require.NoError(t, err)
		require.Len(t, forGroup, 1)

		require.NoError(t, alice.UnshareWithGroup(ctx, team.ID, f.ID))
		viaGroups, err = bob.ListSharedWithMyGroups(ctx)
		require.NoError(t, err)
		require.Empty(t, viaGroups)
	})

	t.Run("delete", func(t *testing.T) {
		err := bob.DeleteGroup(ctx, team.ID)
		require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

		require.NoError(t, alice.DeleteGroup(ctx, team.ID))
		_, err = alice.GetGroup(ctx, team.ID)
		require.Equal(t, "Group not found", err.Error())
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice, aliceUser := e.login(t, "alice")
	_, bobUser := e.login(t, "bob")

	got, err := alice.GetUser(ctx, bobUser.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)

	byEmail, err := alice.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, bobUser.ID, byEmail.ID)

	updated, err := alice.UpdateEmail(ctx, aliceUser.ID, "alice@new.example.com")
	require.NoError(t, err)
	require.Equal(t, "alice@new.example.com", updated.Email)

	_, err = alice.UpdateEmail(ctx, bobUser.ID, "stolen@example.com")
	require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	_, err = alice.ChangePassword(ctx, aliceUser.ID, "n3w-secret")
	require.NoError(t, err)

	fresh := apiclient.New(e.baseURL, credstore.NewMemory(credstore.TokenPair{}), apiclient.WithLogger(slogx.Discard()))
	_, err = fresh.Authenticate(ctx, "alice", "alice-pw")
	require.Equal(t, apiclient.MessageInvalidLogin, err.Error())
	_, err = fresh.Authenticate(ctx, "alice", "n3w-secret")
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	client := apiclient.New(e.baseURL, nil, apiclient.WithLogger(slogx.Discard()))

	h, err := client.Health(ctx)
	require.NoError(t, err)
	require.True(t, h.Up())
	require.Contains(t, h.Components, "db")

	e.fb.SetHealthy(false)
	h, err = client.Health(ctx)
	require.NoError(t, err)
	require.False(t, h.Up())
	require.Equal(t, "DOWN", h.Status)
}
