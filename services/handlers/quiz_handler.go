package handlers

import (
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

type QuizHandler struct {
	quizSvc        QuizServiceInterface
	entitlementSvc EntitlementServiceInterface
}

func NewQuizHandler(quizSvc QuizServiceInterface, entitlementSvc EntitlementServiceInterface) *QuizHandler {
	return &QuizHandler{
		quizSvc:        quizSvc,
		entitlementSvc: entitlementSvc,
	}
}

// deviceID reads the identity stored by the device middleware.
func deviceID(c *fiber.Ctx) string {
	id, _ := c.Locals(shared.DeviceID).(string)
	return id
}

// @Summary Generate Quiz
// @Description Generates a quiz on a topic. Spends one paid token, or the free trial when no tokens remain.
// @Tags quiz
// @Accept  json
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Param generateQuizRequest body dto.GenerateQuizRequest true "Generate quiz request"
// @Success 200 {object} shared.Response{data=dto.GenerateQuizResponse}
// @Failure 402 {object} shared.Response{data=shared.ErrorDetail}
// @Failure 502 {object} shared.Response{data=shared.ErrorDetail}
// @Router /api/v1/quiz/generate [post]
func (h *QuizHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return shared.NewValidationError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.quizSvc.Generate(c.UserContext(), deviceID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Submit Quiz
// @Description Grades answers and updates XP, level, streak and achievements
// @Tags quiz
// @Accept  json
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Param submitQuizRequest body dto.SubmitQuizRequest true "Submit quiz request"
// @Success 200 {object} shared.Response{data=dto.SubmitQuizResponse}
// @Router /api/v1/quiz/submit [post]
func (h *QuizHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		return shared.NewValidationError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.quizSvc.Submit(c.UserContext(), deviceID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Get Progress
// @Tags progress
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/progress [get]
func (h *QuizHandler) GetProgress(c *fiber.Ctx) error {
	resp, err := h.quizSvc.Progress(c.UserContext(), deviceID(c))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary List Achievements
// @Tags progress
// @Produce json
// @Success 200 {object} shared.Response{data=dto.AchievementCatalogResponse}
// @Router /api/v1/achievements [get]
func (h *QuizHandler) GetAchievements(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=3600")
	return shared.ResponseOK(c, h.quizSvc.Achievements())
}

// @Summary Get Token Balance
// @Tags tokens
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Success 200 {object} shared.Response{data=dto.TokenStatusResponse}
// @Router /api/v1/tokens [get]
func (h *QuizHandler) GetTokens(c *fiber.Ctx) error {
	resp, err := h.entitlementSvc.Status(c.UserContext(), deviceID(c))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
