package sow

import (
	"strings"
	"testing"

	"github.com/trezcool/mtaala/core"
	testutil "github.com/trezcool/mtaala/tests"
)

func TestDecodeDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		raw := testutil.SOWDocJSON("course_c84775", []string{"O1"}, []string{"O2", "3"})

		doc, err := DecodeDocument(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("DecodeDocument() error = %v", err)
		}
		if doc.CourseID != "course_c84775" || len(doc.Entries) != 2 {
			t.Errorf("doc = %+v", doc)
		}
		if doc.Entries[0].LessonTemplateRef != "AUTO_TBD_1" {
			t.Errorf("LessonTemplateRef = %v, want the authored placeholder", doc.Entries[0].LessonTemplateRef)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeDocument(strings.NewReader(`{"$id": `))
		if err == nil {
			t.Fatal("DecodeDocument() expected error")
		}
	})

	t.Run("schema violations reported per field", func(t *testing.T) {
		// missing courseId, entry without label or refs
		raw := `{
			"$id": "sow_x", "version": "1.0", "status": "published", "metadata": {},
			"entries": [{"order": 1, "lessonTemplateRef": "AUTO_TBD_1"}]
		}`

		_, err := DecodeDocument(strings.NewReader(raw))
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("DecodeDocument() error = %T(%v), want *core.ValidationError", err, err)
		}

		fields := make(map[string]bool, len(vErr.Fields))
		for _, fld := range vErr.Fields {
			fields[fld.Field] = true
		}
		for _, want := range []string{
			"SchemeOfWork.courseId",
			"SchemeOfWork.entries[0].label",
			"SchemeOfWork.entries[0].outcomeRefs",
		} {
			if !fields[want] {
				t.Errorf("missing field error for %s; got %v", want, vErr.Fields)
			}
		}
	})

	t.Run("empty entries rejected", func(t *testing.T) {
		raw := `{"$id": "sow_x", "courseId": "course_x", "version": "1.0", "status": "draft", "metadata": {}, "entries": []}`

		_, err := DecodeDocument(strings.NewReader(raw))
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("DecodeDocument() error = %T(%v), want *core.ValidationError", err, err)
		}
	})

	t.Run("zero order rejected", func(t *testing.T) {
		raw := `{
			"$id": "sow_x", "courseId": "course_x", "version": "1.0", "status": "draft", "metadata": {},
			"entries": [{"order": 0, "lessonTemplateRef": "AUTO_TBD_1", "label": "L1", "outcomeRefs": ["O1"]}]
		}`

		_, err := DecodeDocument(strings.NewReader(raw))
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("DecodeDocument() error = %T(%v), want *core.ValidationError", err, err)
		}
	})
}
