package profiles

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type ProfileDTO struct {
	ID             uuid.UUID `json:"id"`
	User           uuid.UUID `json:"user"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	ProfilePicture *string   `json:"profile_picture"`
}

// ProfileInput is the full representation accepted by POST and PUT.
type ProfileInput struct {
	Phone          string  `json:"phone" validate:"max=15"`
	Address        string  `json:"address" validate:"max=5000"`
	ProfilePicture *string `json:"profile_picture,omitempty" validate:"omitempty,max=500"`
}

type ProfilePatch struct {
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=15"`
	Address        *string `json:"address,omitempty" validate:"omitempty,max=5000"`
	ProfilePicture *string `json:"profile_picture,omitempty" validate:"omitempty,max=500"`
}

// Patch converts a full input into a patch; an omitted picture clears it.
func (in ProfileInput) Patch() ProfilePatch {
	picture := in.ProfilePicture
	if picture == nil {
		empty := ""
		picture = &empty
	}
	return ProfilePatch{Phone: &in.Phone, Address: &in.Address, ProfilePicture: picture}
}

func FromModel(p *models.UserProfile) ProfileDTO {
	return ProfileDTO{
		ID:             p.ID,
		User:           p.UserID,
		Phone:          p.Phone,
		Address:        p.Address,
		ProfilePicture: p.ProfilePicture,
	}
}
