package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spec-kit/identity-service/internal/service"
)

// ActionGetProfileByID is the single implemented queue action.
const ActionGetProfileByID = "getProfileById"

type getProfileByIDBody struct {
	ProfileID string `json:"profileId"`
}

// RegisterProfileActions wires profile lookups into the consumer.
func RegisterProfileActions(c *Consumer, profiles *service.ProfileService) {
	c.Register(ActionGetProfileByID, func(ctx context.Context, body json.RawMessage) (any, error) {
		var req getProfileByIDBody
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid body")
		}
		if req.ProfileID == "" {
			return nil, errors.New("profileId is required")
		}
		return profiles.FindOne(ctx, req.ProfileID)
	})
}
