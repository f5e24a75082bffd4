package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

func TestConvertMessagesToGemini_Roles(t *testing.T) {
	figure := &models.FigurePayload{PassageID: "c1", FigureID: "f1", MimeType: "image/png", Data: []byte("png")}
	messages := []interfaces.ModelMessage{
		{Role: interfaces.RoleUser, Parts: []models.ContentPart{{Text: "question"}, {Figure: figure}}},
		{Role: interfaces.RoleAssistant, Parts: []models.ContentPart{{Text: "answer"}}},
		{Role: interfaces.RoleUser, Parts: []models.ContentPart{{Text: ""}}},
	}

	contents, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	require.Len(t, contents, 2, "messages without parts are skipped")

	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "question", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("png"), contents[0].Parts[1].InlineData.Data)

	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "answer", contents[1].Parts[0].Text)
}

func TestConvertMessagesToGemini_Empty(t *testing.T) {
	_, err := convertMessagesToGemini(nil)
	assert.Error(t, err)
}
