package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ProvisionAccountMessage struct {
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	Phone         string `json:"phone_number"`
}

func (e ProvisionAccountMessage) Type() string { return "account.provision" }

// ProvisionAccountHandler runs account provisioning inside a transaction
type ProvisionAccountHandler struct {
	repo        RepositoryManager
	provisioner *Provisioner
}

func NewProvisionAccountHandler(repo RepositoryManager, provisioner *Provisioner) *ProvisionAccountHandler {
	if provisioner == nil {
		provisioner = NewProvisioner(repo.Accounts())
	}
	return &ProvisionAccountHandler{
		repo:        repo,
		provisioner: provisioner,
	}
}

func (h *ProvisionAccountHandler) Execute(ctx context.Context, event ProvisionAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ProvisionAccountHandler) execute(ctx context.Context, event ProvisionAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	profile := ExternalProfile{
		Subject:       event.Subject,
		Email:         event.Email,
		EmailVerified: event.EmailVerified,
		Name:          event.Name,
		AvatarURL:     event.AvatarURL,
		Phone:         event.Phone,
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.provisioner.CreateOrUpdateTx(ctx, tx, profile)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account provisioning transaction failed")
	}

	return nil
}
