package garden

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a registered gardener
	RoleMember UserRole = "member"
	// RoleAdmin manages the catalog
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// DisplayName is what the shell greets the user with
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// Plant is a catalog entry
type Plant struct {
	bun.BaseModel  `bun:"table:plants,alias:pl"`
	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	Slug           string `bun:"slug,notnull,unique" json:"slug"`
	CommonName     string `bun:"common_name,notnull" json:"common_name"`
	ScientificName string `bun:"scientific_name" json:"scientific_name,omitempty"`
	Family         string `bun:"family" json:"family,omitempty"`
	Description    string `bun:"description" json:"description,omitempty"`
	CareLevel      string `bun:"care_level" json:"care_level,omitempty"`
	Light          string `bun:"light" json:"light,omitempty"`
	Watering       string `bun:"watering" json:"watering,omitempty"`
	ImageURL       string `bun:"image_url" json:"image_url,omitempty"`
}

// Tour is a virtual garden tour
type Tour struct {
	bun.BaseModel   `bun:"table:tours,alias:tr"`
	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	Slug            string `bun:"slug,notnull,unique" json:"slug"`
	Title           string `bun:"title,notnull" json:"title"`
	Summary         string `bun:"summary" json:"summary,omitempty"`
	Location        string `bun:"location" json:"location,omitempty"`
	DurationMinutes int    `bun:"duration_minutes" json:"duration_minutes,omitempty"`
	Highlights      string `bun:"highlights" json:"highlights,omitempty"`
	VideoURL        string `bun:"video_url" json:"video_url,omitempty"`
}

// GardenPlant is a plant a user keeps in their garden
type GardenPlant struct {
	bun.BaseModel `bun:"table:garden_plants,alias:gp"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	PlantID       int64      `bun:"plant_id,notnull" json:"plant_id"`
	Plant         *Plant     `bun:"rel:belongs-to,join:plant_id=id" json:"plant,omitempty"`
	Nickname      string     `bun:"nickname" json:"nickname,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
}
