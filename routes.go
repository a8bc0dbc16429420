package garden

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Page names a view
type Page string

const (
	PageLogin       Page = "login"
	PageRegister    Page = "register"
	PageHome        Page = "home"
	PageExplore     Page = "explore"
	PagePlantDetail Page = "plant_detail"
	PageTours       Page = "tours"
	PageTourDetail  Page = "tour_detail"
	PageMyGarden    Page = "my_garden"
	PageChatbot     Page = "chatbot"
	PageAbout       Page = "about"
	PageNotFound    Page = "not_found"
)

// CatchAll is the pattern matching every otherwise unmatched path
const CatchAll = "*"

// RouteEntry maps a URL pattern to a page
type RouteEntry struct {
	Name     string
	Pattern  string
	Page     Page
	Title    string
	Public   bool
	NavLabel string
}

// IsCatchAll reports whether the entry matches any path
func (e RouteEntry) IsCatchAll() bool {
	return e.Pattern == CatchAll
}

// RouteTable is a validated, immutable list of routes with the catch-all
// last.
type RouteTable struct {
	entries []RouteEntry
}

// NewRouteTable validates entries and moves the catch-all to the end
func NewRouteTable(entries ...RouteEntry) (*RouteTable, error) {
	seen := make(map[string]struct{}, len(entries))
	ordered := make([]RouteEntry, 0, len(entries))
	var catchAll *RouteEntry

	for i, e := range entries {
		if e.Pattern != CatchAll && !strings.HasPrefix(e.Pattern, "/") {
			return nil, wrapSentinel(ErrInvalidRoute, nil, map[string]any{"pattern": e.Pattern})
		}
		if e.Page == "" {
			return nil, wrapSentinel(ErrInvalidRoute, nil, map[string]any{"pattern": e.Pattern, "reason": "no page"})
		}
		if e.IsCatchAll() {
			if catchAll != nil {
				return nil, ErrMultipleCatchAll
			}
			catchAll = &entries[i]
			continue
		}

		if _, ok := seen[e.Pattern]; ok {
			return nil, wrapSentinel(ErrDuplicateRoute, nil, map[string]any{"pattern": e.Pattern})
		}
		seen[e.Pattern] = struct{}{}
		ordered = append(ordered, e)
	}

	if catchAll != nil {
		ordered = append(ordered, *catchAll)
	}

	return &RouteTable{entries: ordered}, nil
}

// MustRouteTable is NewRouteTable that panics on error
func MustRouteTable(entries ...RouteEntry) *RouteTable {
	t, err := NewRouteTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultRoutes is the application route table
func DefaultRoutes() []RouteEntry {
	return []RouteEntry{
		{Name: "login", Pattern: "/login", Page: PageLogin, Title: "Sign in", Public: true},
		{Name: "register", Pattern: "/register", Page: PageRegister, Title: "Create account", Public: true},
		{Name: "home", Pattern: "/", Page: PageHome, Title: "Home", NavLabel: "Home"},
		{Name: "explore", Pattern: "/explore", Page: PageExplore, Title: "Explore", NavLabel: "Explore"},
		{Name: "plant", Pattern: "/plant/:id", Page: PagePlantDetail, Title: "Plant"},
		{Name: "tours", Pattern: "/tours", Page: PageTours, Title: "Virtual tours", NavLabel: "Tours"},
		{Name: "tour", Pattern: "/tour/:id", Page: PageTourDetail, Title: "Tour"},
		{Name: "my-garden", Pattern: "/my-garden", Page: PageMyGarden, Title: "My garden", NavLabel: "My Garden"},
		{Name: "chatbot", Pattern: "/chatbot", Page: PageChatbot, Title: "Ask the gardener", NavLabel: "Chatbot"},
		{Name: "about", Pattern: "/about", Page: PageAbout, Title: "About", NavLabel: "About"},
		{Name: "not-found", Pattern: CatchAll, Page: PageNotFound, Title: "Not found"},
	}
}

// Entries returns a copy of the routes in mount order
func (t *RouteTable) Entries() []RouteEntry {
	out := make([]RouteEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Nav returns the entries shown in the navigation header
func (t *RouteTable) Nav() []RouteEntry {
	var out []RouteEntry
	for _, e := range t.entries {
		if e.NavLabel != "" {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry for name
func (t *RouteTable) Find(name string) (RouteEntry, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}
	return RouteEntry{}, false
}

// Mount registers every entry on r. Public entries are served directly,
// the rest behind guard, and the catch-all last with a 404 status.
func (t *RouteTable) Mount(r fiber.Router, guard fiber.Handler, handler func(RouteEntry) fiber.Handler) {
	for _, e := range t.entries {
		h := handler(e)

		switch {
		case e.IsCatchAll():
			r.Use(guard, notFoundPage(h))
		case e.Public:
			r.Get(e.Pattern, h).Name(e.Name)
		default:
			r.Get(e.Pattern, guard, h).Name(e.Name)
		}
	}
}

func notFoundPage(h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Status(fiber.StatusNotFound)
		return h(c)
	}
}
