package locator

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
)

// Role names a part of the search UI.
type Role string

const (
	RoleYearDropdown      Role = "year-dropdown"
	RoleTimeFilterTrigger Role = "time-filter-trigger"
	RoleYearOption        Role = "year-option"
	RoleDayCell           Role = "day-cell"
	RoleDayCellInMonth    Role = "day-cell-in-month"
	RoleMonthExpander     Role = "month-expander"
	RoleConfirm           Role = "confirm"
	RoleResultTitle       Role = "result-title"
	RoleResultAnchor      Role = "result-anchor"
	RoleNextPage          Role = "next-page"
	RolePageCurrent       Role = "page-current"
	RolePageTotal         Role = "page-total"
	RoleTitleInput        Role = "title-input"
	RoleSearchTrigger     Role = "search-trigger"
)

// KnownRoles lists every role the verifier drives.
var KnownRoles = []Role{
	RoleYearDropdown, RoleTimeFilterTrigger, RoleYearOption, RoleDayCell,
	RoleDayCellInMonth, RoleMonthExpander, RoleConfirm, RoleResultTitle,
	RoleResultAnchor, RoleNextPage, RolePageCurrent, RolePageTotal,
	RoleTitleInput, RoleSearchTrigger,
}

//go:embed default_catalog.yaml
var defaultCatalog []byte

// StrategySpec is the declarative form of a query strategy.
type StrategySpec struct {
	By        string `yaml:"by"`
	Expr      string `yaml:"expr"`
	Clickable bool   `yaml:"clickable,omitempty"`
}

// RoleSpec declares the strategies of a role and a CSS hint used to list
// likely candidates when all of them fail.
type RoleSpec struct {
	Hint       string         `yaml:"hint,omitempty"`
	Strategies []StrategySpec `yaml:"strategies"`
}

// Document is the YAML shape of a catalog or an override file.
type Document struct {
	Roles map[Role]RoleSpec `yaml:"roles"`
}

// Catalog maps roles to their declared strategies.
type Catalog struct {
	roles map[Role]RoleSpec
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	doc, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("built-in locator catalog: %w", err)
	}
	c := &Catalog{roles: doc.Roles}
	for _, r := range KnownRoles {
		if _, ok := c.roles[r]; !ok {
			return nil, fmt.Errorf("built-in locator catalog: role %q missing", r)
		}
	}
	return c, nil
}

// New builds a catalog from an already parsed document.
func New(doc Document) *Catalog {
	c := &Catalog{roles: make(map[Role]RoleSpec, len(doc.Roles))}
	for r, s := range doc.Roles {
		c.roles[r] = s
	}
	return c
}

// Load returns the built-in catalog with the roles declared in path
// replacing the defaults. An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locator overrides: %w", err)
	}
	doc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("locator overrides %s: %w", path, err)
	}
	c.Override(doc)
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(b []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Document{}, err
	}
	var errs []error
	for role, spec := range doc.Roles {
		if !isKnown(role) {
			errs = append(errs, fmt.Errorf("unknown role %q", role))
			continue
		}
		if len(spec.Strategies) == 0 {
			errs = append(errs, fmt.Errorf("role %q: no strategies", role))
		}
		for i, s := range spec.Strategies {
			if _, err := parseBy(s.By); err != nil {
				errs = append(errs, fmt.Errorf("role %q strategy %d: %w", role, i, err))
			}
			if strings.TrimSpace(s.Expr) == "" {
				errs = append(errs, fmt.Errorf("role %q strategy %d: empty expr", role, i))
			}
		}
	}
	if len(errs) > 0 {
		return Document{}, errors.Join(errs...)
	}
	return doc, nil
}

// Override replaces whole roles with the ones declared in doc.
func (c *Catalog) Override(doc Document) {
	for role, spec := range doc.Roles {
		if spec.Hint == "" {
			spec.Hint = c.roles[role].Hint
		}
		c.roles[role] = spec
	}
}

// Vars fill the placeholders of strategy expressions.
type Vars map[string]string

// DateVars returns the placeholders for a publication date.
func DateVars(t time.Time) Vars {
	return Vars{
		"year":  strconv.Itoa(t.Year()),
		"month": strconv.Itoa(int(t.Month())),
		"date":  t.Format(entity.DateLayout),
	}
}

func (v Vars) expand(expr string) string {
	if len(v) == 0 {
		return expr
	}
	pairs := make([]string, 0, len(v)*2)
	for k, val := range v {
		pairs = append(pairs, "{"+k+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(expr)
}

// Chain builds the strategy chain of a role with placeholders filled in.
// An unknown role yields an empty chain, which never resolves.
func (c *Catalog) Chain(role Role, vars Vars) Chain {
	spec := c.roles[role]
	ch := Chain{Role: role, Strategies: make([]Strategy, 0, len(spec.Strategies))}
	for _, s := range spec.Strategies {
		by, _ := parseBy(s.By)
		ch.Strategies = append(ch.Strategies, FromQuery(repository.Query{
			By:        by,
			Expr:      vars.expand(s.Expr),
			Clickable: s.Clickable,
		}))
	}
	return ch
}

// Hint returns the CSS selector listing candidates for a role.
func (c *Catalog) Hint(role Role) string {
	return c.roles[role].Hint
}

// Document returns the effective catalog, for printing.
func (c *Catalog) Document() Document {
	out := Document{Roles: make(map[Role]RoleSpec, len(c.roles))}
	for r, s := range c.roles {
		out.Roles[r] = s
	}
	return out
}

// Roles returns the declared roles in name order.
func (c *Catalog) Roles() []Role {
	roles := make([]Role, 0, len(c.roles))
	for r := range c.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func parseBy(s string) (repository.By, error) {
	switch strings.ToLower(s) {
	case "xpath", "":
		return repository.ByXPath, nil
	case "css":
		return repository.ByCSS, nil
	case "id":
		return repository.ByID, nil
	}
	return repository.ByXPath, fmt.Errorf("unknown query type %q", s)
}

func isKnown(r Role) bool {
	for _, k := range KnownRoles {
		if k == r {
			return true
		}
	}
	return false
}
