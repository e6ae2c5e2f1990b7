package outcome

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
)

// Extract flattens a processed course into outcome records, dispatching on
// the declared structure variant.
func Extract(pc course.ProcessedCourse, logger core.Logger) ([]Outcome, error) {
	structure := pc.Data.Structure()
	switch structure.Type {
	case course.SkillsBased:
		return extractSkillsBased(pc, structure.SkillsBased, logger)
	default:
		return extractUnitBased(pc, structure.UnitBased)
	}
}

func extractUnitBased(pc course.ProcessedCourse, s *course.UnitBasedStructure) ([]Outcome, error) {
	if s == nil || len(s.Units) == 0 {
		return nil, core.NewStructureError(
			fmt.Sprintf("course %s has no units to extract", pc.CourseID),
			dumpData(pc.Data),
		)
	}

	var recs []Outcome
	for _, unit := range s.Units {
		for _, node := range unit.Outcomes {
			recs = append(recs, Outcome{
				CourseID:            pc.CourseID,
				CourseSQACode:       pc.SQACode,
				UnitCode:            unit.Code,
				UnitTitle:           unit.Title,
				SCQFCredits:         null.NewInt(unit.SCQFCredits, unit.SCQFCredits != 0),
				OutcomeID:           node.ID,
				OutcomeTitle:        node.Title,
				AssessmentStandards: node.AssessmentStandards,
				TeacherGuidance:     buildGuidance(node.AssessmentStandards),
				Keywords:            buildKeywords(node.Title, node.AssessmentStandards),
			})
		}
	}
	return recs, nil
}

func extractSkillsBased(pc course.ProcessedCourse, s *course.SkillsBasedStructure, logger core.Logger) ([]Outcome, error) {
	if s == nil || (len(s.SkillsFramework.Skills) == 0 && len(s.TopicAreas) == 0) {
		return nil, core.NewStructureError(
			fmt.Sprintf("course %s has an empty skills framework", pc.CourseID),
			dumpData(pc.Data),
		)
	}
	if err := ValidateSkillsFramework(s, logger); err != nil {
		return nil, err
	}

	recs := make([]Outcome, 0, len(s.TopicAreas)+len(s.SkillsFramework.Skills))

	// topic pass: one grouping record per topic area; its synthetic standard
	// carries the assessed skill names so consumers can look up children.
	for i, topic := range s.TopicAreas {
		std := course.AssessmentStandard{
			Code:            core.CodeName(topic.Title),
			Desc:            topic.Title,
			MarkingGuidance: topic.MarkingGuidance,
			SkillsList:      topic.SkillsAssessed,
		}
		recs = append(recs, Outcome{
			CourseID:            pc.CourseID,
			CourseSQACode:       pc.SQACode,
			UnitCode:            TopicPrefix + core.CodeName(topic.Title),
			UnitTitle:           topic.Title,
			OutcomeID:           fmt.Sprintf("T%d", i+1),
			OutcomeTitle:        topic.Title,
			AssessmentStandards: []course.AssessmentStandard{std},
			TeacherGuidance:     topicGuidance(topic),
			Keywords:            buildKeywords(topic.Title, []course.AssessmentStandard{std}),
		})
	}

	// skill pass: parent topics are denormalized into the guidance text since
	// the store has no join support.
	for i, skill := range s.SkillsFramework.Skills {
		std := course.AssessmentStandard{
			Code: core.CodeName(skill.Name),
			Desc: skill.Description,
		}
		recs = append(recs, Outcome{
			CourseID:            pc.CourseID,
			CourseSQACode:       pc.SQACode,
			UnitCode:            SkillPrefix + core.CodeName(skill.Name),
			UnitTitle:           skill.Name,
			OutcomeID:           fmt.Sprintf("S%d", i+1),
			OutcomeTitle:        skill.Name,
			AssessmentStandards: []course.AssessmentStandard{std},
			TeacherGuidance:     skillGuidance(skill, parentTopics(skill.Name, s.TopicAreas)),
			Keywords:            buildKeywords(skill.Name, []course.AssessmentStandard{std}),
		})
	}
	return recs, nil
}

// ValidateSkillsFramework cross-checks topic skill references against the
// flat skills list: a referenced skill missing from the list is fatal, a
// listed skill referenced by no topic is only worth a warning.
func ValidateSkillsFramework(s *course.SkillsBasedStructure, logger core.Logger) error {
	known := make(map[string]bool, len(s.SkillsFramework.Skills))
	for _, skill := range s.SkillsFramework.Skills {
		known[skill.Name] = false
	}

	var missing []string
	for _, topic := range s.TopicAreas {
		for _, name := range topic.SkillsAssessed {
			if _, ok := known[name]; !ok {
				missing = append(missing, fmt.Sprintf("%q (topic %q)", name, topic.Title))
				continue
			}
			known[name] = true
		}
	}
	if len(missing) > 0 {
		return core.NewIntegrityError("skills referenced by topics but absent from the skills framework", missing...)
	}

	for _, skill := range s.SkillsFramework.Skills {
		if !known[skill.Name] {
			logger.Warn(fmt.Sprintf("orphaned skill %q: present in the framework but assessed by no topic", skill.Name))
		}
	}
	return nil
}

// parentTopics scans every topic's skills_assessed for the skill name.
// O(topics × skills), fine at tens of items.
func parentTopics(skillName string, topics []course.TopicArea) []string {
	var parents []string
	for _, topic := range topics {
		for _, name := range topic.SkillsAssessed {
			if name == skillName {
				parents = append(parents, topic.Title)
				break
			}
		}
	}
	return parents
}

// buildGuidance renders assessment standards as a Markdown block, one
// paragraph per standard.
func buildGuidance(standards []course.AssessmentStandard) string {
	paragraphs := make([]string, 0, len(standards))
	for _, std := range standards {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**: %s", std.Code, std.Desc)
		if std.MarkingGuidance != "" {
			b.WriteString("\n\nMarking guidance: " + std.MarkingGuidance)
		}
		if len(std.SkillsList) > 0 {
			b.WriteString("\n\nSkills: " + strings.Join(std.SkillsList, ", "))
		}
		paragraphs = append(paragraphs, b.String())
	}
	return strings.Join(paragraphs, "\n\n")
}

func topicGuidance(topic course.TopicArea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", topic.Title)
	for _, point := range topic.ContentPoints {
		b.WriteString("\n- " + point)
	}
	if topic.MarkingGuidance != "" {
		b.WriteString("\n\nMarking guidance: " + topic.MarkingGuidance)
	}
	return b.String()
}

func skillGuidance(skill course.Skill, parents []string) string {
	var b strings.Builder
	b.WriteString(skill.Description)
	if len(skill.Examples) > 0 {
		b.WriteString("\n\nExamples: " + strings.Join(skill.Examples, "; "))
	}
	b.WriteString("\n\nParent Topics: " + strings.Join(parents, ", "))
	return b.String()
}

var punctReplacer = strings.NewReplacer(
	".", "", ",", "", ";", "", ":", "", "!", "", "?", "",
	"(", "", ")", "", "[", "", "]", "", "\"", "", "'", "", "’", "",
)

// buildKeywords derives the keyword token set: title words longer than 3
// characters plus up to 3 words longer than 4 characters from each standard
// description; lowercased, punctuation stripped, deduplicated.
func buildKeywords(title string, standards []course.AssessmentStandard) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(word string) {
		if !seen[word] {
			seen[word] = true
			keywords = append(keywords, word)
		}
	}

	for _, word := range strings.Fields(title) {
		word = punctReplacer.Replace(strings.ToLower(word))
		if len(word) > 3 {
			add(word)
		}
	}
	for _, std := range standards {
		picked := 0
		for _, word := range strings.Fields(std.Desc) {
			if picked == 3 {
				break
			}
			word = punctReplacer.Replace(strings.ToLower(word))
			if len(word) > 4 {
				add(word)
				picked++
			}
		}
	}
	return keywords
}

func dumpData(data course.CourseData) string {
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", data)
	}
	return string(pretty)
}
