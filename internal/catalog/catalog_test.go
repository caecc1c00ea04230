package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope-io/codescope/pkg/models"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "checks.yaml"), nil)
	require.NoError(t, err)

	tree := c.Tree()
	require.NotEmpty(t, tree)
	require.Equal(t, "security", tree[0].Key)

	items := c.ListEnabledItems()
	require.NotEmpty(t, items)
	for _, item := range items {
		require.True(t, item.Enabled)
	}
}

func TestListEnabledItemsSkipsDisabled(t *testing.T) {
	c := &Catalog{groups: []models.CheckGroup{
		{ID: "g1", Key: "security", Enabled: true, SortOrder: 1, Items: []models.CheckItem{
			{ID: "i1", ItemKey: "security_a", Enabled: true, SortOrder: 1},
			{ID: "i2", ItemKey: "security_b", Enabled: false, SortOrder: 2},
		}},
		{ID: "g2", Key: "smell", Enabled: false, SortOrder: 2, Items: []models.CheckItem{
			{ID: "i3", ItemKey: "smell_a", Enabled: true, SortOrder: 1},
		}},
	}}

	items := c.ListEnabledItems()
	require.Len(t, items, 1)
	require.Equal(t, "i1", items[0].ID)
}

func TestListEnabledItemsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	c, err := Load(path, nil)
	require.NoError(t, err)

	items := c.ListEnabledItems()
	require.Greater(t, len(items), 2)
	// Default catalog starts with the security group in its sort order.
	require.Equal(t, "security_hardcoded_secrets", items[0].ItemKey)
	require.Equal(t, "security_sql_injection", items[1].ItemKey)
}

func TestGetItem(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "checks.yaml"), nil)
	require.NoError(t, err)

	item, err := c.GetItem("chk-sec-secrets")
	require.NoError(t, err)
	require.Equal(t, "security_hardcoded_secrets", item.ItemKey)

	_, err = c.GetItem("chk-nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogCRUDPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	c, err := Load(path, nil)
	require.NoError(t, err)

	group, err := c.CreateGroup(models.CheckGroup{
		Key: "performance", Name: "Performance", SortOrder: 9, Enabled: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, group.ID)

	item, err := c.CreateItem(group.ID, models.CheckItem{
		ItemKey: "performance_n_plus_one", ItemName: "N+1 queries",
		Severity: models.SeverityMajor, SortOrder: 1, Enabled: true,
	})
	require.NoError(t, err)
	require.Equal(t, group.ID, item.GroupID)

	updated, err := c.UpdatePromptTemplate(item.ID, "Look for N+1 query patterns.\n{{code}}")
	require.NoError(t, err)
	require.Contains(t, updated.PromptTemplate, "N+1")

	// Mutations reach the file and survive a reload.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	got, err := reloaded.GetItem(item.ID)
	require.NoError(t, err)
	require.Contains(t, got.PromptTemplate, "N+1")

	require.NoError(t, c.DeleteItem(item.ID))
	_, err = c.GetItem(item.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, c.DeleteGroup(group.ID))
	_, err = c.GetGroup(group.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateGroupDuplicateKey(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "checks.yaml"), nil)
	require.NoError(t, err)

	_, err = c.CreateGroup(models.CheckGroup{Key: "security", Name: "Security again"})
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestCreateItemUnknownGroup(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "checks.yaml"), nil)
	require.NoError(t, err)

	_, err = c.CreateItem("grp-nope", models.CheckItem{ItemKey: "x"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestTreeIsolatedFromLaterMutations(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "checks.yaml"), nil)
	require.NoError(t, err)

	tree := c.Tree()
	require.NotEmpty(t, tree)
	require.NotEmpty(t, tree[0].Items)
	itemID := tree[0].Items[0].ID
	before := tree[0].Items[0].PromptTemplate

	_, err = c.UpdatePromptTemplate(itemID, "rewritten template")
	require.NoError(t, err)
	require.NoError(t, c.DeleteItem(tree[0].Items[len(tree[0].Items)-1].ID))

	// The snapshot handed out earlier must not see either mutation.
	require.Equal(t, before, tree[0].Items[0].PromptTemplate)
	require.Equal(t, itemID, tree[0].Items[0].ID)

	group, err := c.GetGroup(tree[0].ID)
	require.NoError(t, err)
	groupItems := group.Items
	_, err = c.UpdatePromptTemplate(itemID, "rewritten again")
	require.NoError(t, err)
	require.Equal(t, "rewritten template", groupItems[0].PromptTemplate)
}
