package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
)

type courseAPI struct {
	opts *Options
}

func registerCourseAPI(g *echo.Group, admin echo.MiddlewareFunc, opts *Options) {
	api := courseAPI{opts: opts}

	cg := g.Group("/courses")
	cg.GET("", api.list)
	cg.GET("/:id", api.get)
	cg.GET("/:id/outcomes", api.outcomes)
	cg.GET("/:id/sow", api.sow)

	ag := g.Group("/admin", admin)
	ag.POST("/courses/:id/reseed", api.reseed)
}

type courseResponse struct {
	ID      string `json:"id"`
	SQACode string `json:"sqaCode"`
	Subject string `json:"subject"`
	Level   string `json:"level"`
}

func newCourseResponse(c course.Course) courseResponse {
	return courseResponse{ID: c.ID, SQACode: c.SQACode, Subject: c.Subject, Level: c.Level}
}

type outcomeResponse struct {
	ID              string   `json:"id"`
	CourseID        string   `json:"courseId"`
	UnitCode        string   `json:"unitCode"`
	UnitTitle       string   `json:"unitTitle"`
	SCQFCredits     null.Int `json:"scqfCredits,omitempty"`
	OutcomeID       string   `json:"outcomeId"`
	OutcomeTitle    string   `json:"outcomeTitle"`
	TeacherGuidance string   `json:"teacherGuidance"`
	Keywords        []string `json:"keywords"`
}

func newOutcomeResponse(o outcome.Outcome) outcomeResponse {
	return outcomeResponse{
		ID:              o.ID,
		CourseID:        o.CourseID,
		UnitCode:        o.UnitCode,
		UnitTitle:       o.UnitTitle,
		SCQFCredits:     o.SCQFCredits,
		OutcomeID:       o.OutcomeID,
		OutcomeTitle:    o.OutcomeTitle,
		TeacherGuidance: o.TeacherGuidance,
		Keywords:        o.Keywords,
	}
}

func (api courseAPI) list(ctx echo.Context) error {
	courses, err := api.opts.CourseSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, newCourseResponse(c))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api courseAPI) get(ctx echo.Context) error {
	c, err := api.opts.CourseSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourseResponse(c))
}

func (api courseAPI) outcomes(ctx echo.Context) error {
	recs, err := api.opts.OutcomeSvc.Filter(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	resp := make([]outcomeResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, newOutcomeResponse(rec))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api courseAPI) sow(ctx echo.Context) error {
	doc, err := api.opts.SOWSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, doc)
}

// reseed re-runs the outcome pipeline for an already seeded course under
// force-update. The window where outcomes are deleted but not yet rewritten
// is visible to readers; admin-only for that reason.
func (api courseAPI) reseed(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	c, err := api.opts.CourseSvc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	pc, err := api.opts.CourseSvc.Locate(reqCtx, c.Subject, c.Level)
	if err != nil {
		return err
	}
	if _, err = api.opts.CourseSvc.EnsureCourse(reqCtx, pc, true); err != nil {
		return err
	}
	res, err := api.opts.OutcomeSvc.Seed(reqCtx, pc, outcome.SeedOptions{ForceUpdate: true})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
