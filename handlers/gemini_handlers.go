package handlers

import (
	"fmt"
	"log"
	"os"
	"strings"

	"app/forecast"

	"github.com/gofiber/fiber/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// HandleForecastInsight computes a forecast and asks the Gemini API for a
// short natural-language read of it, for the merchant dashboard.
// POST /api/v1/analytics/forecast/insight
func HandleForecastInsight(c *fiber.Ctx) error {
	var body struct {
		ProductID int64 `json:"product_id"`
		Days      int   `json:"days"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
		})
	}
	if body.Days <= 0 {
		body.Days = 30
	}
	if body.ProductID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "product_id must not be negative",
		})
	}

	prediction, err := engine.Forecast(c.Context(), forecast.Scope(body.ProductID), body.Days, true)
	if err != nil {
		return forecastErrorResponse(c, err)
	}

	// Initialize the Gemini client
	ctx := c.Context()
	client, err := genai.NewClient(ctx, option.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
	if err != nil {
		log.Printf("Error creating Gemini client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to initialize Gemini client",
		})
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-1.5-pro-latest")
	resp, err := model.GenerateContent(ctx, genai.Text(insightPrompt(prediction)))
	if err != nil {
		log.Printf("Error generating content: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to generate insight",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"prediction": prediction,
			"insight":    resp,
		},
	})
}

func insightPrompt(p *forecast.Prediction) string {
	var sb strings.Builder
	sb.WriteString("You are an analyst for a retail back office. ")
	fmt.Fprintf(&sb, "Summarize this %d-day demand forecast for %s in two or three plain sentences, ", len(p.Points), p.Scope)
	sb.WriteString("mentioning the trend and anything a store manager should act on. Daily forecast (date, expected units, low, high):\n")
	for _, point := range p.Points {
		fmt.Fprintf(&sb, "%s: %.1f (%.1f-%.1f)\n", point.Date.Format("2006-01-02"), point.Value, point.Lower, point.Upper)
	}
	return sb.String()
}
