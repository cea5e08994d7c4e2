package mongodb

import (
	"time"

	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userDocument struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	FirstName  string        `bson:"firstName"`
	LastName   string        `bson:"lastName"`
	Email      string        `bson:"email"`
	Password   string        `bson:"password"`
	Bio        string        `bson:"bio"`
	Occupation string        `bson:"occupation"`
	PhotoURL   string        `bson:"photoUrl"`
	Instagram  string        `bson:"instagram"`
	Facebook   string        `bson:"facebook"`
	LinkedIn   string        `bson:"linkedin"`
	GitHub     string        `bson:"github"`
	Reset      resetDocument `bson:"reset"`
	CreatedAt  time.Time     `bson:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt"`
}

// resetDocument is always written whole, so the token and expiry can never be
// left behind when the status flips back to normal.
type resetDocument struct {
	Status    string     `bson:"status"`
	TokenHash string     `bson:"tokenHash,omitempty"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

func newUserDocument(nu models.NewUser, now time.Time) userDocument {
	return userDocument{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Password:  string(nu.Password),
		Reset:     newResetDocument(models.NormalReset()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newResetDocument(r models.ResetState) resetDocument {
	if r.Status != models.ResetPending {
		return resetDocument{Status: string(models.ResetNormal)}
	}
	exp := r.ExpiresAt.UTC()
	return resetDocument{
		Status:    string(models.ResetPending),
		TokenHash: r.TokenHash,
		ExpiresAt: &exp,
	}
}

func (d userDocument) toModel() models.User {
	u := models.User{
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Email:      d.Email,
		Password:   []byte(d.Password),
		Bio:        d.Bio,
		Occupation: d.Occupation,
		PhotoURL:   d.PhotoURL,
		Instagram:  d.Instagram,
		Facebook:   d.Facebook,
		LinkedIn:   d.LinkedIn,
		GitHub:     d.GitHub,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		u.ID = d.ID.Hex()
	}

	u.Reset = models.ResetState{Status: models.ResetStatus(d.Reset.Status), TokenHash: d.Reset.TokenHash}
	if u.Reset.Status == "" {
		u.Reset.Status = models.ResetNormal
	}
	if d.Reset.ExpiresAt != nil {
		u.Reset.ExpiresAt = *d.Reset.ExpiresAt
	}

	return u
}
