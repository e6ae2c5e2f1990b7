package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	echoapi "github.com/trezcool/mtaala/apps/api/echo"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	"github.com/trezcool/mtaala/core/sow"
	inmemdb "github.com/trezcool/mtaala/storage/database/inmem"
	testutil "github.com/trezcool/mtaala/tests"
)

var secretKey = []byte("test-secret")

type apiFixture struct {
	app    echoapi.Server
	db     *inmemdb.DB
	logger *testutil.Logger
	pc     course.ProcessedCourse
	sowSvc *sow.Service
}

// newAPIFixture seeds one fully processed course (document + outcomes) and
// serves it.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	logger := testutil.NewLogger()
	policy := testutil.NoDelayPolicy()

	courseRepo := inmemdb.NewCourseRepository(db)
	outcomeRepo := inmemdb.NewOutcomeRepository(db)
	courseSvc := course.NewService(inmemdb.NewRawCourseRepository(db), courseRepo, logger)
	outcomeSvc := outcome.NewService(outcomeRepo, courseRepo, policy, logger)
	sowSvc := sow.NewService(inmemdb.NewSOWRepository(db), inmemdb.NewTemplateRepository(db), outcomeRepo, policy, logger)

	ctx := context.Background()
	testutil.CreateRawCourse(t, inmemdb.NewRawCourseRepository(db), "mathematics", "national_5", testutil.UnitBasedJSON)
	pc, err := courseSvc.Locate(ctx, "mathematics", "national_5")
	if err != nil {
		t.Fatalf("Locate(): %v", err)
	}
	if _, err = courseSvc.EnsureCourse(ctx, pc, false); err != nil {
		t.Fatalf("EnsureCourse(): %v", err)
	}
	if _, err = outcomeSvc.Seed(ctx, pc, outcome.SeedOptions{}); err != nil {
		t.Fatalf("Seed(): %v", err)
	}

	app := echoapi.NewServer(&echoapi.Options{
		TestMode:       true,
		DisableReqLogs: true,
		SecretKey:      secretKey,
		Logger:         logger,
		CourseSvc:      courseSvc,
		OutcomeSvc:     outcomeSvc,
		SOWSvc:         sowSvc,
	})
	return &apiFixture{app: app, db: db, logger: logger, pc: pc, sowSvc: sowSvc}
}

func (f *apiFixture) request(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestAPI_home(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Welcome to Mtaala API!" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAPI_courses(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("list", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
		}
		var courses []map[string]interface{}
		decodeBody(t, rec, &courses)
		if len(courses) != 1 {
			t.Fatalf("courses = %v, want 1", courses)
		}
		if courses[0]["id"] != "course_c84775" || courses[0]["sqaCode"] != "C847 75" {
			t.Errorf("courses[0] = %v", courses[0])
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses/course_c84775", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		var c map[string]interface{}
		decodeBody(t, rec, &c)
		if c["subject"] != "mathematics" || c["level"] != "national_5" {
			t.Errorf("course = %v", c)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses/course_nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("outcomes", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses/course_c84775/outcomes", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		var recs []map[string]interface{}
		decodeBody(t, rec, &recs)
		if len(recs) != 3 {
			t.Fatalf("outcomes = %d, want 3", len(recs))
		}
		if recs[0]["courseId"] != "course_c84775" {
			t.Errorf("recs[0] = %v", recs[0])
		}
	})

	t.Run("sow before stitching", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses/course_c84775/sow", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("sow after stitching", func(t *testing.T) {
		doc, err := sow.DecodeDocument(strings.NewReader(testutil.SOWDocJSON("course_c84775", []string{"O1"})))
		if err != nil {
			t.Fatalf("DecodeDocument(): %v", err)
		}
		if _, err := f.sowSvc.Stitch(context.Background(), doc, sow.StitchOptions{}); err != nil {
			t.Fatalf("Stitch(): %v", err)
		}

		rec := f.request(t, http.MethodGet, "/v1/courses/course_c84775/sow", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		var persisted map[string]interface{}
		decodeBody(t, rec, &persisted)
		if persisted["courseId"] != "course_c84775" || persisted["version"] != "1.0" {
			t.Errorf("sow = %v", persisted)
		}
	})

	t.Run("trailing slash removed", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/v1/courses/", "")
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want 200", rec.Code)
		}
	})
}

func TestAPI_reseed(t *testing.T) {
	f := newAPIFixture(t)

	adminToken, err := echoapi.MakeAdminToken(secretKey, time.Hour)
	if err != nil {
		t.Fatalf("MakeAdminToken(): %v", err)
	}

	t.Run("no token", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_c84775/reseed", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		bad, err := echoapi.MakeAdminToken([]byte("other-secret"), time.Hour)
		if err != nil {
			t.Fatalf("MakeAdminToken(): %v", err)
		}
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_c84775/reseed", bad)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := echoapi.MakeAdminToken(secretKey, -time.Hour)
		if err != nil {
			t.Fatalf("MakeAdminToken(): %v", err)
		}
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_c84775/reseed", expired)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("token without the admin claim", func(t *testing.T) {
		claims := echoapi.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
		if err != nil {
			t.Fatalf("SignedString(): %v", err)
		}
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_c84775/reseed", token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want 403", rec.Code)
		}
	})

	t.Run("admin reseeds under force update", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_c84775/reseed", adminToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
		}
		var res map[string]interface{}
		decodeBody(t, rec, &res)
		if res["courseId"] != "course_c84775" {
			t.Errorf("res = %v", res)
		}
		if res["deleted"] != float64(3) {
			t.Errorf("deleted = %v, want 3", res["deleted"])
		}
		written, _ := res["written"].([]interface{})
		if len(written) != 3 {
			t.Errorf("written = %v, want 3 ids", written)
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/v1/admin/courses/course_nope/reseed", adminToken)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})
}
