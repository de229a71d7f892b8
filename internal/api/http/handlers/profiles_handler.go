package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/service"
)

// ProfilesHandler exposes profile CRUD endpoints.
type ProfilesHandler struct {
	profiles *service.ProfileService
}

// NewProfilesHandler constructs handler.
func NewProfilesHandler(profileService *service.ProfileService) *ProfilesHandler {
	return &ProfilesHandler{profiles: profileService}
}

// Create handles POST /profiles.
func (h *ProfilesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Create(c.UserContext(), req.AuthID, req.FirstName, req.LastName, req.Email)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.OK("Profile created successfully", profile))
}

// FindAll handles GET /profiles?limit=&offset=.
func (h *ProfilesHandler) FindAll(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)

	profiles, total, err := h.profiles.FindAll(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(dto.OK("Profiles retrieved", dto.ProfileListResponse{Profiles: profiles, Total: total}))
}

// FindOne handles GET /profiles/:id.
func (h *ProfilesHandler) FindOne(c *fiber.Ctx) error {
	profile, err := h.profiles.FindOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile retrieved", profile))
}

// FindByAuthRef handles GET /profiles/by-auth/:authId.
func (h *ProfilesHandler) FindByAuthRef(c *fiber.Ctx) error {
	profile, err := h.profiles.FindByAuthRef(c.UserContext(), c.Params("authId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile retrieved", profile))
}

// FindByEmail handles GET /profiles/by-email/:email.
func (h *ProfilesHandler) FindByEmail(c *fiber.Ctx) error {
	email, unescapeErr := url.QueryUnescape(c.Params("email"))
	if unescapeErr != nil {
		email = c.Params("email")
	}
	profile, err := h.profiles.FindByEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile retrieved", profile))
}

// Search handles GET /profiles/search?name=&limit=.
func (h *ProfilesHandler) Search(c *fiber.Ctx) error {
	name := c.Query("name")
	limit := queryInt(c, "limit", 0)

	profiles, err := h.profiles.SearchByPartialName(c.UserContext(), name, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profiles retrieved", profiles))
}

// Stats handles GET /profiles/stats.
func (h *ProfilesHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.profiles.GetStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile statistics retrieved", stats))
}

// Exists handles GET /profiles/:id/exists.
func (h *ProfilesHandler) Exists(c *fiber.Ctx) error {
	exists := h.profiles.Exists(c.UserContext(), c.Params("id"))
	return c.JSON(dto.OK("Existence check complete", fiber.Map{"exists": exists}))
}

// Update handles PATCH /profiles/:id.
func (h *ProfilesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Update(c.UserContext(), c.Params("id"), service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile updated successfully", profile))
}

// Delete handles DELETE /profiles/:id. The owning credential is untouched.
func (h *ProfilesHandler) Delete(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.OK("Profile deleted successfully", nil))
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
