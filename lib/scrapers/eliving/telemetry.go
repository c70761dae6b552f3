package eliving

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("mealplan.lib.scrapers.eliving")

const (
	report_driver_transition = "driver.transition"
	report_driver_rejected   = "driver.rejected"
	report_driver_failed     = "driver.failed"

	report_extractor_page       = "extractor.page"
	report_extractor_paginate   = "extractor.paginate"
	report_extractor_incomplete = "extractor.incomplete"
	report_extractor_rows       = "extractor.rows"

	report_session_close = "session.close"
)
