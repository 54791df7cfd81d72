package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/secrets"
)

type SecretsHandler struct {
	manager *secrets.Manager
}

func NewSecretsHandler(manager *secrets.Manager) *SecretsHandler {
	return &SecretsHandler{manager: manager}
}

func accessorFromCtx(ctx *fiber.Ctx) secrets.Accessor {
	actor, _ := ctx.Locals("userId").(string)
	if actor == "" {
		actor = "anonymous"
	}
	return secrets.Accessor{
		ID:        actor,
		IP:        ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}
}

func secretError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, secrets.ErrSecretNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Secret not found"),
		)
	case errors.Is(err, secrets.ErrInvalidName):
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Invalid secret name"),
		)
	case errors.Is(err, secrets.ErrSecretNameTaken):
		return ctx.Status(fiber.StatusConflict).JSON(
			NewErrorResponse(fiber.StatusConflict, "Secret name already in use"),
		)
	default:
		return err
	}
}

type storeSecretRequest struct {
	Name             string     `json:"name"`
	Value            string     `json:"value"`
	Type             string     `json:"type"`
	Tags             []string   `json:"tags"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	RotationStrategy string     `json:"rotationStrategy"`
}

func (h *SecretsHandler) PostSecret(ctx *fiber.Ctx) error {
	var req storeSecretRequest
	if err := ctx.BodyParser(&req); err != nil || req.Value == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Missing name or value"),
		)
	}
	secretType := secrets.SecretType(req.Type)
	if secretType == "" {
		secretType = secrets.TypeCustom
	}
	meta, err := h.manager.StoreSecret(ctx.Context(), req.Name, req.Value, secretType, secrets.StoreOptions{
		Tags:             req.Tags,
		ExpiresAt:        req.ExpiresAt,
		RotationStrategy: secrets.RotationStrategy(req.RotationStrategy),
	}, accessorFromCtx(ctx))
	if err != nil {
		return secretError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(meta))
}

// GetSecretValue returns the decrypted plaintext. Metadata lives on a
// separate route so reads of the value are always deliberate.
func (h *SecretsHandler) GetSecretValue(ctx *fiber.Ctx) error {
	value, err := h.manager.GetSecret(ctx.Context(), ctx.Params("id"), accessorFromCtx(ctx))
	if err != nil {
		return secretError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"value": value}))
}

func (h *SecretsHandler) GetSecretMetadata(ctx *fiber.Ctx) error {
	meta, err := h.manager.GetSecretMetadata(ctx.Params("id"))
	if err != nil {
		return secretError(ctx, err)
	}
	needsRotation, _ := h.manager.NeedsRotation(meta.ID)
	return ctx.JSON(NewDataResponse(fiber.Map{
		"metadata":      meta,
		"needsRotation": needsRotation,
	}))
}

type secretValueRequest struct {
	Value string `json:"value"`
}

func (h *SecretsHandler) PutSecret(ctx *fiber.Ctx) error {
	var req secretValueRequest
	if err := ctx.BodyParser(&req); err != nil || req.Value == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Missing value"),
		)
	}
	if err := h.manager.UpdateSecret(ctx.Context(), ctx.Params("id"), req.Value, accessorFromCtx(ctx)); err != nil {
		return secretError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"updated": true}))
}

func (h *SecretsHandler) PostRotateSecret(ctx *fiber.Ctx) error {
	var req secretValueRequest
	if err := ctx.BodyParser(&req); err != nil || req.Value == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Missing value"),
		)
	}
	if err := h.manager.RotateSecret(ctx.Context(), ctx.Params("id"), req.Value, accessorFromCtx(ctx)); err != nil {
		return secretError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"rotated": true}))
}

func (h *SecretsHandler) DeleteSecret(ctx *fiber.Ctx) error {
	if err := h.manager.DeleteSecret(ctx.Context(), ctx.Params("id"), accessorFromCtx(ctx)); err != nil {
		return secretError(ctx, err)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"deleted": true}))
}

// GetSecrets lists active secret metadata, filterable by type or tags.
// Plaintext values are never included.
func (h *SecretsHandler) GetSecrets(ctx *fiber.Ctx) error {
	if secretType := ctx.Query("type"); secretType != "" {
		return ctx.JSON(NewDataResponse(h.manager.SecretsByType(secrets.SecretType(secretType))))
	}
	if tag := ctx.Query("tag"); tag != "" {
		return ctx.JSON(NewDataResponse(h.manager.SecretsByTags([]string{tag})))
	}
	return ctx.JSON(NewDataResponse(h.manager.ListSecrets()))
}

func (h *SecretsHandler) GetRotationDue(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(h.manager.SecretsNeedingRotation()))
}

func (h *SecretsHandler) GetAccessLog(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	pageSize := ctx.QueryInt("pageSize", 50)
	return ctx.JSON(NewDataResponse(fiber.Map{
		"entries": h.manager.AccessLogPage(page, pageSize),
		"total":   h.manager.AccessLogSize(),
	}))
}

// PostGenerate mints a fresh secret of the requested kind without storing
// it. The caller decides whether to persist it.
func (h *SecretsHandler) PostGenerate(ctx *fiber.Ctx) error {
	kind := ctx.Query("kind", "secret")
	var (
		value string
		err   error
	)
	switch kind {
	case "apiKey":
		value, err = secrets.GenerateAPIKey()
	case "jwtSecret":
		value, err = secrets.GenerateJWTSecret()
	case "databasePassword":
		value, err = secrets.GenerateDatabasePassword()
	case "secret":
		value, err = secrets.GenerateSecureSecret(ctx.QueryInt("length", 32))
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Unknown kind"),
		)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(fiber.Map{
		"kind":     kind,
		"value":    value,
		"strength": secrets.SecretStrength(value),
	}))
}
