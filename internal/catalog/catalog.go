// Package catalog owns the quality check configuration: groups of check
// items, each carrying a severity and a prompt template. The scan engine only
// reads it; the administrative API mutates it.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/codescope-io/codescope/pkg/models"
)

type Catalog struct {
	mu     sync.RWMutex
	path   string
	groups []models.CheckGroup
	logger *logrus.Logger
}

// Load reads the catalog from a YAML file. A missing file is not an error:
// the built-in default catalog is used and written back on the first mutation.
func Load(path string, logger *logrus.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Catalog{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Infof("Check catalog %s not found, using built-in defaults", path)
		c.groups = defaultGroups()
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc struct {
		Groups []models.CheckGroup `yaml:"groups"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.groups = doc.Groups
	c.sortLocked()
	return c, nil
}

// Tree returns the full group → item tree in sort order, enabled or not.
func (c *Catalog) Tree() []models.CheckGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CheckGroup, len(c.groups))
	for i, g := range c.groups {
		g.Items = append([]models.CheckItem(nil), g.Items...)
		out[i] = g
	}
	return out
}

// ListEnabledItems returns every enabled item of every enabled group, ordered
// by group sort order then item sort order. This is the effective check set
// when a scan request names no items.
func (c *Catalog) ListEnabledItems() []models.CheckItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var items []models.CheckItem
	for _, g := range c.groups {
		if !g.Enabled {
			continue
		}
		for _, it := range g.Items {
			if it.Enabled {
				items = append(items, it)
			}
		}
	}
	return items
}

func (c *Catalog) GetItem(id string) (models.CheckItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.groups {
		for _, it := range g.Items {
			if it.ID == id {
				return it, nil
			}
		}
	}
	return models.CheckItem{}, models.NotFoundf("check item %s", id)
}

func (c *Catalog) GetGroup(id string) (models.CheckGroup, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.groups {
		if g.ID == id {
			g.Items = append([]models.CheckItem(nil), g.Items...)
			return g, nil
		}
	}
	return models.CheckGroup{}, models.NotFoundf("check group %s", id)
}

func (c *Catalog) CreateGroup(group models.CheckGroup) (models.CheckGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.groups {
		if g.Key == group.Key {
			return models.CheckGroup{}, models.Conflictf("group key %q already exists", group.Key)
		}
	}
	group.ID = uuid.NewString()
	for i := range group.Items {
		group.Items[i].ID = uuid.NewString()
		group.Items[i].GroupID = group.ID
	}
	c.groups = append(c.groups, group)
	c.sortLocked()
	return group, c.saveLocked()
}

func (c *Catalog) CreateItem(groupID string, item models.CheckItem) (models.CheckItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for gi := range c.groups {
		if c.groups[gi].ID != groupID {
			continue
		}
		item.ID = uuid.NewString()
		item.GroupID = groupID
		c.groups[gi].Items = append(c.groups[gi].Items, item)
		c.sortLocked()
		return item, c.saveLocked()
	}
	return models.CheckItem{}, models.NotFoundf("check group %s", groupID)
}

// UpdatePromptTemplate replaces the prompt template of one item.
func (c *Catalog) UpdatePromptTemplate(itemID, template string) (models.CheckItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for gi := range c.groups {
		for ii := range c.groups[gi].Items {
			if c.groups[gi].Items[ii].ID == itemID {
				c.groups[gi].Items[ii].PromptTemplate = template
				return c.groups[gi].Items[ii], c.saveLocked()
			}
		}
	}
	return models.CheckItem{}, models.NotFoundf("check item %s", itemID)
}

func (c *Catalog) DeleteGroup(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, g := range c.groups {
		if g.ID == id {
			c.groups = append(c.groups[:i], c.groups[i+1:]...)
			return c.saveLocked()
		}
	}
	return models.NotFoundf("check group %s", id)
}

func (c *Catalog) DeleteItem(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for gi := range c.groups {
		for ii, it := range c.groups[gi].Items {
			if it.ID == id {
				c.groups[gi].Items = append(c.groups[gi].Items[:ii], c.groups[gi].Items[ii+1:]...)
				return c.saveLocked()
			}
		}
	}
	return models.NotFoundf("check item %s", id)
}

func (c *Catalog) sortLocked() {
	sort.SliceStable(c.groups, func(i, j int) bool {
		return c.groups[i].SortOrder < c.groups[j].SortOrder
	})
	for gi := range c.groups {
		items := c.groups[gi].Items
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].SortOrder < items[j].SortOrder
		})
	}
}

func (c *Catalog) saveLocked() error {
	if c.path == "" {
		return nil
	}
	doc := struct {
		Groups []models.CheckGroup `yaml:"groups"`
	}{Groups: c.groups}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
