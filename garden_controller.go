package garden

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// GardenController manages the signed in user's garden list
type GardenController struct {
	gardens  Gardens
	pages    *PageRenderer
	path     string
	logger   Logger
	activity ActivitySink
}

func NewGardenController(gardens Gardens, pages *PageRenderer) *GardenController {
	return &GardenController{
		gardens: gardens,
		pages:   pages,
		path:    "/my-garden",
		logger:  defaultLogger(),
	}
}

func (g *GardenController) WithActivitySink(sink ActivitySink) *GardenController {
	g.activity = sink
	return g
}

func (g *GardenController) WithLogger(l Logger) *GardenController {
	if l != nil {
		g.logger = l
	}
	return g
}

// Register mounts the garden mutations behind guard
func (g *GardenController) Register(app fiber.Router, guard fiber.Handler) {
	app.Post(g.path, guard, g.Add).Name("my-garden.post")
	app.Post(g.path+"/:id/delete", guard, g.Remove).Name("my-garden.delete")
}

// AddPlantRequest is the add to garden form
type AddPlantRequest struct {
	PlantID  int64  `form:"plant_id" json:"plant_id"`
	Nickname string `form:"nickname" json:"nickname"`
}

func (r AddPlantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PlantID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Nickname, validation.Length(0, 80)),
	)
}

func (g *GardenController) Add(c *fiber.Ctx) error {
	user, ok := GetCurrentUser(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	if !CanEditGarden(user.Role) {
		return fiber.ErrForbidden
	}

	payload := new(AddPlantRequest)
	if err := c.BodyParser(payload); err != nil {
		return g.renderErrors(c, fiber.StatusBadRequest, map[string]string{"form": "Failed to parse form"})
	}

	if err := payload.Validate(); err != nil {
		return g.renderErrors(c, fiber.StatusUnprocessableEntity, FormatValidationErrorToMap(err))
	}

	_, err := g.gardens.Add(c.UserContext(), user.ID, payload.PlantID, strings.TrimSpace(payload.Nickname))
	switch {
	case errors.Is(err, ErrPlantNotFound):
		return g.renderErrors(c, fiber.StatusNotFound, map[string]string{"plant_id": "Unknown plant"})
	case errors.Is(err, ErrAlreadyInGarden):
		return g.renderErrors(c, fiber.StatusConflict, map[string]string{"plant_id": "Already in your garden"})
	case err != nil:
		return err
	}

	recordActivity(c.UserContext(), g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventGardenAdded,
		UserID:    user.ID.String(),
		IP:        c.IP(),
		Metadata:  map[string]any{"plant_id": payload.PlantID},
	})
	return c.Redirect(g.path, fiber.StatusSeeOther)
}

func (g *GardenController) Remove(c *fiber.Ctx) error {
	user, ok := GetCurrentUser(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	entryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return wrapSentinel(ErrGardenNotFound, err, map[string]any{"id": c.Params("id")})
	}

	if err := g.gardens.Remove(c.UserContext(), user.ID, entryID); err != nil {
		return err
	}

	recordActivity(c.UserContext(), g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventGardenRemoved,
		UserID:    user.ID.String(),
		IP:        c.IP(),
		Metadata:  map[string]any{"entry_id": entryID.String()},
	})
	return c.Redirect(g.path, fiber.StatusSeeOther)
}

func (g *GardenController) renderErrors(c *fiber.Ctx, status int, errs map[string]string) error {
	c.Status(status)
	return g.pages.Render(c, PageMyGarden, "My garden", fiber.Map{"errors": errs})
}
