package main

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/services"
)

// orderReport is what `signctl order` prints
type orderReport struct {
	Mode       domain.SigningMode  `yaml:"mode"`
	Phase      domain.SigningPhase `yaml:"phase"`
	ActiveRank int                 `yaml:"active_rank,omitempty"`
	Signed     []string            `yaml:"signed"`
	CanAct     []string            `yaml:"can_act"`
}

func newOrderCmd() *cobra.Command {
	var recipientsPath string
	var fieldsPath string
	var signed []string
	var observersMustSign bool

	command := &cobra.Command{
		Use:   "order",
		Short: "show who may act next",
		Long: `order derives the signing mode from the recipients' ranks and, given the
recipients that have already signed, prints the current phase and the
recipients allowed to act.`,
		Example: "signctl order --recipients recipients.yaml --signed r1,r2",
		RunE: func(cmd *cobra.Command, args []string) error {
			recipients, err := loadRecipients(recipientsPath)
			if err != nil {
				return err
			}
			var fields []*domain.Field
			if fieldsPath != "" {
				if fields, err = loadFields(fieldsPath); err != nil {
					return err
				}
			}

			report, err := resolveOrder(recipients, fields, signed, observersMustSign)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	command.Flags().StringVarP(&recipientsPath, "recipients", "r", "", "YAML file listing the recipients")
	command.Flags().StringVarP(&fieldsPath, "fields", "f", "", "YAML file listing the fields (optional)")
	command.Flags().StringSliceVarP(&signed, "signed", "s", nil, "IDs of recipients that have signed")
	command.Flags().BoolVar(&observersMustSign, "observers-must-sign", true, "recipients without fields must sign too")
	_ = command.MarkFlagRequired("recipients")
	return command
}

// resolveOrder replays the signing order for recipients with the given
// recipients already signed. Signatures that would have been out of turn are
// rejected.
func resolveOrder(recipients []*domain.Recipient, fields []*domain.Field, signed []string, observersMustSign bool) (*orderReport, error) {
	if err := services.ValidateConfiguration(recipients, fields); err != nil {
		return nil, err
	}
	mode, err := services.DeriveMode(recipients)
	if err != nil {
		return nil, err
	}

	instance := &domain.Instance{ID: "local", Mode: mode, Recipients: recipients, Fields: fields}
	progress := services.InitialProgress(instance, observersMustSign)
	byID := make(map[string]*domain.SigningProgress, len(progress))
	for _, p := range progress {
		byID[p.RecipientID] = p
	}

	for _, id := range signed {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("recipient %s: %w", id, domain.ErrUnauthorizedRecipient)
		}
		state := services.ResolveState(mode, progress)
		if !p.IsSigned() && !containsID(services.ActorsFor(instance, state), id) {
			return nil, fmt.Errorf("recipient %s, active rank %d: %w", id, state.ActiveRank, domain.ErrOutOfTurn)
		}
		p.Status = domain.ProgressStatusSigned
	}

	state := services.ResolveState(mode, progress)
	report := &orderReport{
		Mode:       mode,
		Phase:      state.Phase,
		ActiveRank: state.ActiveRank,
		Signed:     []string{},
		CanAct:     []string{},
	}
	done := mapset.NewThreadUnsafeSet[string]()
	for _, p := range progress {
		if p.IsSigned() {
			done.Add(p.RecipientID)
		}
	}
	for _, r := range recipients {
		if done.Contains(r.ID) {
			report.Signed = append(report.Signed, r.ID)
		}
	}
	for _, r := range services.PendingActors(services.ActorsFor(instance, state), progress) {
		report.CanAct = append(report.CanAct, r.ID)
	}
	return report, nil
}

func containsID(recipients []*domain.Recipient, id string) bool {
	for _, r := range recipients {
		if r.ID == id {
			return true
		}
	}
	return false
}
