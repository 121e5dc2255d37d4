// Package names resolves what people type (ids, names, partial names) to
// role and member ids.
// Matching priority:
//  1. ID
//  2. Exact name (case-sensitive)
//  3. Case-insensitive name
//  4. Partial name (contains)
package names

import (
	"context"
	"strings"

	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

// RoleLister loads a company's roles.
type RoleLister interface {
	Roles(ctx context.Context, companyID string) ([]models.Role, error)
}

// Resolver resolves roles for one company. Roles are fetched once per
// realm and shared by every lookup in it.
type Resolver struct {
	roles *data.Pool[[]models.Role]
}

// NewResolver creates a resolver whose role cache lives in realm.
func NewResolver(realm *data.Realm, lister RoleLister, companyID string) *Resolver {
	key := "roles:" + companyID
	pool := data.RealmPool(realm, key, func() *data.Pool[[]models.Role] {
		return data.NewPool(key, data.PoolConfig{}, func(ctx context.Context) ([]models.Role, error) {
			return lister.Roles(ctx, companyID)
		})
	})
	return &Resolver{roles: pool}
}

// Roles returns the company's roles, fetching them on first use.
func (r *Resolver) Roles(ctx context.Context) ([]models.Role, error) {
	if e := r.roles.Get(); e.Fresh() {
		return e.Data, nil
	}
	data.Run(r.roles.FetchIfStale(ctx))
	e := r.roles.Get()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Data, nil
}

// ResolveRole resolves a role id or name. Returns the id and display name.
func (r *Resolver) ResolveRole(ctx context.Context, input string) (string, string, error) {
	roles, err := r.Roles(ctx)
	if err != nil {
		return "", "", err
	}
	m, err := pick("role", input, roles, func(x models.Role) (string, string) { return x.ID, x.Name })
	if err != nil {
		return "", "", err
	}
	return m.ID, m.Name, nil
}

// RoleName returns the display name of a role id, or the id itself when
// the role is unknown.
func (r *Resolver) RoleName(ctx context.Context, id string) string {
	roles, err := r.Roles(ctx)
	if err != nil {
		return id
	}
	for _, x := range roles {
		if x.ID == id {
			return x.Name
		}
	}
	return id
}

// ResolveMember resolves a member id, email or name against an
// availability list.
func ResolveMember(members []models.AvailableMember, input string) (models.AvailableMember, error) {
	for _, m := range members {
		if m.Email != "" && strings.EqualFold(m.Email, input) {
			return m, nil
		}
	}
	return pick("member", input, members, func(m models.AvailableMember) (string, string) { return m.ID, m.Name })
}

func pick[T any](resource, input string, items []T, extract func(T) (string, string)) (T, error) {
	var zero T
	input = strings.TrimSpace(input)
	for _, it := range items {
		if id, _ := extract(it); id == input {
			return it, nil
		}
	}

	match, matches := resolve(input, items, extract)
	if match != nil {
		return *match, nil
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			_, names[i] = extract(m)
		}
		return zero, output.ErrAmbiguous(resource, names)
	}

	suggestions := suggest(input, items, func(it T) string { _, n := extract(it); return n })
	if len(suggestions) > 0 {
		return zero, output.ErrNotFoundHint(title(resource), input, "Did you mean: "+strings.Join(suggestions, ", "))
	}
	return zero, output.ErrNotFound(title(resource), input)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// resolve matches by exact name, then case-insensitive name, then
// substring. It returns the single match, or every candidate of the first
// phase that matched more than one.
func resolve[T any](input string, items []T, extract func(T) (string, string)) (*T, []T) {
	lower := strings.ToLower(input)

	for i := range items {
		if _, name := extract(items[i]); name == input {
			return &items[i], nil
		}
	}

	phases := []func(string) bool{
		func(name string) bool { return strings.ToLower(name) == lower },
		func(name string) bool { return lower != "" && strings.Contains(strings.ToLower(name), lower) },
	}
	for _, matchFn := range phases {
		var found []T
		for _, it := range items {
			if _, name := extract(it); matchFn(name) {
				found = append(found, it)
			}
		}
		if len(found) == 1 {
			return &found[0], nil
		}
		if len(found) > 1 {
			return nil, found
		}
	}
	return nil, nil
}

// suggest returns up to 3 names sharing a two-letter prefix or a word with
// input.
func suggest[T any](input string, items []T, getName func(T) string) []string {
	lower := strings.ToLower(input)
	var out []string
	for _, it := range items {
		name := getName(it)
		nameLower := strings.ToLower(name)
		common := 0
		for i := 0; i < len(lower) && i < len(nameLower) && lower[i] == nameLower[i]; i++ {
			common++
		}
		if common >= 2 || containsWord(nameLower, lower) {
			out = append(out, name)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

func containsWord(haystack, needle string) bool {
	for _, w := range strings.Fields(needle) {
		if len(w) >= 2 && strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
