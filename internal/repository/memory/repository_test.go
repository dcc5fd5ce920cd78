package memory

import (
	"testing"

	"mailtriage/internal/repository/repotest"
)

func TestInMemoryRepositories(t *testing.T) {
	repotest.Run(t, repotest.Repos{
		Users:       NewInMemoryUserRepository(),
		Labels:      NewInMemoryLabelRepository(),
		Emails:      NewInMemoryEmailRepository(),
		Assignments: NewInMemoryAssignmentRepository(),
	})
}
