package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

func TestRequirementExtractor_Extract(t *testing.T) {
	e := NewRequirementExtractor(nil)

	tests := []struct {
		name   string
		text   string
		verify func(t *testing.T, req domain.JobRequirement)
	}{
		{
			name: "inline markers",
			text: "Required: Python and Docker. Kubernetes is a plus.",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"python", "docker"}, req.RequiredSkills)
				assert.Equal(t, []string{"kubernetes"}, req.PreferredSkills)
			},
		},
		{
			name: "marker binds to its own comma segment",
			text: "Required: Python and Docker, Kubernetes is a plus.",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"python", "docker"}, req.RequiredSkills)
				assert.Equal(t, []string{"kubernetes"}, req.PreferredSkills)
			},
		},
		{
			name: "plus as a conjunction is not a marker",
			text: "Must have Python plus Docker.",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"python", "docker"}, req.RequiredSkills)
				assert.Empty(t, req.PreferredSkills)
			},
		},
		{
			name: "marker carries on to later segments",
			text: "Experience with Redis, bonus for Kafka, Terraform",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"redis"}, req.RequiredSkills)
				assert.Equal(t, []string{"kafka", "terraform"}, req.PreferredSkills)
			},
		},
		{
			name: "section headings switch mode",
			text: "Senior Backend Engineer\n\nRequirements:\n- 5+ years of experience with Go\n- PostgreSQL, Redis\n\nNice to have:\n- Kafka\n- Terraform or AWS\n",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"go", "postgresql", "redis"}, req.RequiredSkills)
				assert.Equal(t, []string{"kafka", "terraform", "aws"}, req.PreferredSkills)
				assert.Equal(t, domain.SenioritySenior, req.Seniority)
				assert.Equal(t, []string{"web"}, req.DomainTags)
			},
		},
		{
			name: "required wins over preferred",
			text: "Bonus: React.\nMust know React and TypeScript",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"react", "typescript"}, req.RequiredSkills)
				assert.Empty(t, req.PreferredSkills)
			},
		},
		{
			name: "ambiguous words without context are ignored",
			text: "You will go the extra mile writing Java services",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, []string{"java"}, req.RequiredSkills)
			},
		},
		{
			name: "years imply seniority",
			text: "2-3 years building Django apps for a fintech payments team",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, domain.SeniorityMid, req.Seniority)
				assert.Equal(t, []string{"fintech"}, req.DomainTags)
			},
		},
		{
			name: "highest named level wins",
			text: "Junior or senior candidates welcome. Rust required.",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, domain.SenioritySenior, req.Seniority)
			},
		},
		{
			name: "no level mentioned",
			text: "Python",
			verify: func(t *testing.T, req domain.JobRequirement) {
				assert.Equal(t, domain.SeniorityUnknown, req.Seniority)
				assert.Empty(t, req.DomainTags)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := e.Extract(tt.text)
			require.NoError(t, err)
			tt.verify(t, req)

			for _, s := range req.PreferredSkills {
				assert.NotContains(t, req.RequiredSkills, s)
			}
		})
	}
}

func TestRequirementExtractor_EmptyRequirement(t *testing.T) {
	e := NewRequirementExtractor(nil)

	for _, text := range []string{"", "   ", "We value curiosity, ownership and kindness in everything we ship to customers worldwide every single day."} {
		_, err := e.Extract(text)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrEmptyRequirement)
	}

	_, err := e.Extract("We value curiosity, ownership and kindness in everything we ship to customers worldwide every single day.")
	assert.Contains(t, err.Error(), "...")
}
