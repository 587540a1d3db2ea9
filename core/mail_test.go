package core_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/tests"
)

// errorLogger keeps the messages logged at error level.
type errorLogger struct {
	testutil.NopLogger
	errors []string
}

func (l *errorLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }

func TestParseEmailTemplates(t *testing.T) {
	logger := &errorLogger{}
	core.ParseEmailTemplates(logger, true)
	require.Empty(t, logger.errors)

	msg := core.EmailMessage{
		TemplateName: "course_invite",
		TemplateData: map[string]string{
			"Name":        "Anna",
			"InvitedBy":   "Ivan Petrov",
			"CourseTitle": "Maths",
			"Capacity":    "student",
			"InviteID":    "42",
		},
	}
	require.NoError(t, msg.Render("http://localhost:8080"))

	assert.Contains(t, msg.TextContent, `Ivan Petrov invited you to join "Maths" as a student.`)
	assert.Contains(t, msg.HTMLContent, "Ivan Petrov invited you to join <strong>Maths</strong> as a student.")
	for _, content := range []string{msg.TextContent, msg.HTMLContent} {
		assert.Contains(t, content, "http://localhost:8080/invites/42")
	}
	assert.Contains(t, msg.TextContent, "Classroom", "the _base layout wraps the content")

	unknown := core.EmailMessage{TemplateName: "nope"}
	assert.EqualError(t, unknown.Render(""), fmt.Sprintf("email template %q not found", "nope"))
}
