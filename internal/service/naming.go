package service

import (
	"context"
	"fmt"

	"github.com/Tomlord1122/todo-service/internal/repository"
)

const (
	NamePolicyCount  = "count"
	NamePolicyUnique = "unique"
)

// maxUniqueAttempts bounds the suffix search of the unique policy.
const maxUniqueAttempts = 10000

// NamePolicy decides the stored name for an uploaded file.
type NamePolicy interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// NewNamePolicy returns the policy registered under kind.
func NewNamePolicy(kind string, repo repository.AttachmentRepository) (NamePolicy, error) {
	switch kind {
	case NamePolicyCount, "":
		return &countPolicy{repo: repo}, nil
	case NamePolicyUnique:
		return &uniquePolicy{repo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown name policy: %s", kind)
	}
}

// countPolicy keeps the name when no attachment exists at all and otherwise
// appends the total attachment count, e.g. "a.txt(3)". The count is read
// without exclusivity, so concurrent uploads may resolve to the same name.
type countPolicy struct {
	repo repository.AttachmentRepository
}

func (p *countPolicy) Resolve(ctx context.Context, name string) (string, error) {
	n, err := p.repo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("counting attachments: %w", err)
	}
	if n == 0 {
		return name, nil
	}
	return fmt.Sprintf("%s(%d)", name, n), nil
}

// uniquePolicy keeps the name when it is free and otherwise appends the
// first free suffix (1), (2), ...
type uniquePolicy struct {
	repo repository.AttachmentRepository
}

func (p *uniquePolicy) Resolve(ctx context.Context, name string) (string, error) {
	candidate := name
	for i := 1; i <= maxUniqueAttempts; i++ {
		n, err := p.repo.CountByName(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking attachment name %q: %w", candidate, err)
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s(%d)", name, i)
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", name, maxUniqueAttempts)
}
