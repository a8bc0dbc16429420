package garden

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-garden/middleware/csrf"
)

// PageLoader adds page specific data to bind
type PageLoader func(c *fiber.Ctx, bind fiber.Map) error

// PageRenderer renders route table pages with their common view data
type PageRenderer struct {
	table   *RouteTable
	catalog Catalog
	gardens Gardens
	loaders map[Page]PageLoader
	appName string
	logger  Logger
}

// PageRendererOption configures a PageRenderer
type PageRendererOption func(*PageRenderer)

// WithPageLoader overrides or adds the loader for page
func WithPageLoader(page Page, loader PageLoader) PageRendererOption {
	return func(p *PageRenderer) {
		p.loaders[page] = loader
	}
}

// WithAppName sets the name shown by the layout
func WithAppName(name string) PageRendererOption {
	return func(p *PageRenderer) {
		if name != "" {
			p.appName = name
		}
	}
}

func WithPageLogger(l Logger) PageRendererOption {
	return func(p *PageRenderer) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPageRenderer returns a renderer with the default loaders
func NewPageRenderer(table *RouteTable, catalog Catalog, gardens Gardens, opts ...PageRendererOption) *PageRenderer {
	p := &PageRenderer{
		table:   table,
		catalog: catalog,
		gardens: gardens,
		appName: "Garden",
		logger:  defaultLogger(),
	}
	p.loaders = map[Page]PageLoader{
		PageHome:        p.loadHome,
		PageExplore:     p.loadExplore,
		PagePlantDetail: p.loadPlant,
		PageTours:       p.loadTours,
		PageTourDetail:  p.loadTour,
		PageMyGarden:    p.loadGarden,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler renders the entry page
func (p *PageRenderer) Handler(e RouteEntry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return p.Render(c, e.Page, e.Title, nil)
	}
}

// Render runs the page loader and renders its view. extra is merged
// last so callers can re-render forms with errors.
func (p *PageRenderer) Render(c *fiber.Ctx, page Page, title string, extra fiber.Map) error {
	bind := p.ViewData(c, page, title)

	if loader, ok := p.loaders[page]; ok && loader != nil {
		if err := loader(c, bind); err != nil {
			return err
		}
	}

	for k, v := range extra {
		bind[k] = v
	}

	return c.Render(string(page), bind)
}

// RenderEntry renders the page registered under the route name
func (p *PageRenderer) RenderEntry(c *fiber.Ctx, name string, extra fiber.Map) error {
	e, ok := p.table.Find(name)
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, "unknown route "+name)
	}
	return p.Render(c, e.Page, e.Title, extra)
}

// ViewData is the data every view receives
func (p *PageRenderer) ViewData(c *fiber.Ctx, page Page, title string) fiber.Map {
	user, ok := GetCurrentUser(c)
	if !ok {
		user, _ = CurrentSession(c).User()
	}

	bind := fiber.Map{
		"app_name":      p.appName,
		"page":          string(page),
		"title":         title,
		"path":          c.Path(),
		"params":        c.AllParams(),
		"id":            c.Params("id"),
		"nav":           p.table.Nav(),
		TemplateUserKey: user,
		"csrf_token":    "",
		"csrf_field":    "",
	}

	if token, ok := c.Locals(csrf.DefaultContextKey).(string); ok {
		bind["csrf_token"] = token
	}
	if field, ok := c.Locals(csrf.DefaultFieldKey).(string); ok {
		bind["csrf_field"] = field
	}

	return bind
}

func (p *PageRenderer) loadHome(c *fiber.Ctx, bind fiber.Map) error {
	plants, err := p.catalog.ListPlants(c.UserContext(), 6)
	if err != nil {
		return err
	}
	tours, err := p.catalog.ListTours(c.UserContext(), 3)
	if err != nil {
		return err
	}
	bind["plants"] = plants
	bind["tours"] = tours
	return nil
}

func (p *PageRenderer) loadExplore(c *fiber.Ctx, bind fiber.Map) error {
	q := c.Query("q")
	plants, err := p.catalog.SearchPlants(c.UserContext(), q)
	if err != nil {
		return err
	}
	bind["q"] = q
	bind["plants"] = plants
	return nil
}

// loadPlant never fails on unknown ids, the page renders without a plant
func (p *PageRenderer) loadPlant(c *fiber.Ctx, bind fiber.Map) error {
	bind["plant"] = nil
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil
	}

	plant, err := p.catalog.GetPlant(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrPlantNotFound) {
			return nil
		}
		return err
	}
	bind["plant"] = plant
	return nil
}

func (p *PageRenderer) loadTours(c *fiber.Ctx, bind fiber.Map) error {
	tours, err := p.catalog.ListTours(c.UserContext(), 0)
	if err != nil {
		return err
	}
	bind["tours"] = tours
	return nil
}

func (p *PageRenderer) loadTour(c *fiber.Ctx, bind fiber.Map) error {
	bind["tour"] = nil
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil
	}

	tour, err := p.catalog.GetTour(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrTourNotFound) {
			return nil
		}
		return err
	}
	bind["tour"] = tour
	return nil
}

func (p *PageRenderer) loadGarden(c *fiber.Ctx, bind fiber.Map) error {
	bind["garden"] = []GardenPlant{}
	user, ok := GetCurrentUser(c)
	if !ok {
		return nil
	}

	entries, err := p.gardens.ListForUser(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	plants, err := p.catalog.ListPlants(c.UserContext(), 0)
	if err != nil {
		return err
	}
	bind["garden"] = entries
	bind["plants"] = plants
	return nil
}
