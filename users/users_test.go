package users_test

import (
	"math"
	"testing"

	"github.com/jrsteele09/qa-console/users"
	fakeuserrepo "github.com/jrsteele09/qa-console/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Password1"))

	err := users.ValidatePasswordStrength("short")
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 8 characters")

	err = users.ValidatePasswordStrength("password1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "uppercase")

	err = users.ValidatePasswordStrength("Passwordx")
	require.Error(t, err)
	require.Contains(t, err.Error(), "number")
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Password1")
	require.NoError(t, err)

	u := &users.User{ID: "u1", PasswordHash: hash}
	require.True(t, u.CheckPassword("Password1"))
	require.False(t, u.CheckPassword("Password2"))
}

func TestHeldAuthorities(t *testing.T) {
	u := &users.User{RoleCode: users.RoleTester, Authorities: []string{"QA", "", "REPORT"}}
	require.Equal(t, []string{"QA", "REPORT"}, u.HeldAuthorities())

	require.Equal(t, []string{"X"}, users.MergeAuthorities("", []string{"X"}))
}

func TestFakeUserRepoList(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, repo.Upsert(&users.User{ID: "alice", Name: "Alice", RoleCode: users.RoleManager}))
	require.NoError(t, repo.Upsert(&users.User{ID: "bob", Name: "Bob", RoleCode: users.RoleTester}))
	require.NoError(t, repo.Upsert(&users.User{ID: "carol", Name: "Carol", RoleCode: users.RoleTester}))

	t.Run("role filter", func(t *testing.T) {
		list, total, err := repo.List(users.ListFilter{RoleCode: users.RoleTester}, 0, 10)
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Equal(t, "bob", list[0].ID)
	})

	t.Run("keyword and paging", func(t *testing.T) {
		list, total, err := repo.List(users.ListFilter{}, 1, 1)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, list, 1)
		require.Equal(t, "bob", list[0].ID)

		list, total, err = repo.List(users.ListFilter{Keyword: "CAR"}, 0, 10)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, "carol", list[0].ID)
	})

	t.Run("offset past end", func(t *testing.T) {
		list, total, err := repo.List(users.ListFilter{}, 10, 10)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Empty(t, list)
	})

	t.Run("offset and limit at the int limits", func(t *testing.T) {
		list, total, err := repo.List(users.ListFilter{}, -5, 10)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Empty(t, list)

		list, _, err = repo.List(users.ListFilter{}, 1, math.MaxInt)
		require.NoError(t, err)
		require.Len(t, list, 2)
	})
}
