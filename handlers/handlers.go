package handlers

import "app/forecast"

var engine *forecast.Engine

// Setup injects the forecasting engine the analytics handlers delegate to.
// Called once from main before the routes are registered.
func Setup(e *forecast.Engine) {
	engine = e
}
