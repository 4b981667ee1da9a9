package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/planner"
	"github.com/ashureev/journey-mapper/internal/reorder"
)

func (s *Session) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.AITimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.AITimeout)
}

func ShowCmd(open Opener) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the business profile, personas and journey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				out := cmd.OutOrStdout()
				switch format {
				case "text":
					st := s.Planner.Snapshot()
					fmt.Fprintln(out, renderBusiness(st.Business, st.HasCredential))
					fmt.Fprintln(out, renderBoard(st.JourneyMap))
					return nil
				case "json":
					return writeJSON(out, s.Planner.Snapshot())
				case "yaml":
					return yaml.NewEncoder(out).Encode(s.Planner.Document())
				}
				return fmt.Errorf("unknown format %q", format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}

func ExportCmd(open Opener) *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the planning document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				var (
					name string
					data []byte
					err  error
				)
				switch format {
				case "json":
					name, data, err = s.Planner.Export()
				case "yaml":
					name = s.Planner.ExportFilename("yaml")
					data, err = yaml.Marshal(s.Planner.Document())
				default:
					return fmt.Errorf("unknown format %q", format)
				}
				if err != nil {
					return err
				}
				if out == "" {
					out = name
				}
				if out == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output path (default journey_map_<date>.<ext>, - for stdout)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	return cmd
}

func ImportCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			return withSession(cmd, open, func(s *Session) error {
				res, err := s.Planner.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported business=%t personas=%t journey=%t\n",
					res.Business, res.Personas, res.Journey)
				return nil
			})
		},
	}
}

func GenerateCmd(open Opener) *cobra.Command {
	var personaID string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a complete journey with AI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				if personaID != "" {
					if err := s.Planner.SelectPersona(personaID); err != nil {
						return err
					}
				}
				ctx, cancel := s.aiContext(cmd.Context())
				defer cancel()
				if err := s.Planner.GenerateJourney(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBoard(s.Planner.Snapshot().JourneyMap))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&personaID, "persona", "", "Persona id to tailor the journey to")
	return cmd
}

func SuggestCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <stage-id>",
		Short: "Append AI suggested touchpoints to a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				ctx, cancel := s.aiContext(cmd.Context())
				defer cancel()
				items, err := s.Planner.SuggestStageItems(ctx, args[0])
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
					return nil
				}
				for _, it := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "+ %s\n", it.Content)
				}
				return nil
			})
		},
	}
}

func OptimizeCmd(open Opener) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Analyse the journey for bottlenecks and opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unknown format %q", format)
			}
			return withSession(cmd, open, func(s *Session) error {
				ctx, cancel := s.aiContext(cmd.Context())
				defer cancel()
				res, err := s.Planner.Optimize(ctx)
				if err != nil {
					return err
				}
				if format == "yaml" {
					return yaml.NewEncoder(cmd.OutOrStdout()).Encode(res)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderOptimization(res))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or yaml")
	return cmd
}

func SetKeyCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <key>",
		Short: "Store the Gemini API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				if err := s.Planner.SetCredential(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
				return nil
			})
		},
	}
}

func BusinessCmd(open Opener) *cobra.Command {
	var name, offer, customer, price, goals string
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Edit the business profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch planner.BusinessPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("offer") {
				patch.Offer = &offer
			}
			if flags.Changed("customer") {
				patch.Customer = &customer
			}
			if flags.Changed("price") {
				patch.Price = &price
			}
			if flags.Changed("goals") {
				patch.GoalsText = &goals
			}
			return withSession(cmd, open, func(s *Session) error {
				b, err := s.Planner.UpdateBusiness(cmd.Context(), patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBusiness(b, s.Planner.Snapshot().HasCredential))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Business name")
	cmd.Flags().StringVar(&offer, "offer", "", "Main offer")
	cmd.Flags().StringVar(&customer, "customer", "", "Target customer")
	cmd.Flags().StringVar(&price, "price", "", "Price point")
	cmd.Flags().StringVar(&goals, "goals", "", "Comma separated goals")
	return cmd
}

func PersonaCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage customer personas",
	}
	cmd.AddCommand(personaAddCmd(open), personaRmCmd(open), personaLsCmd(open))
	return cmd
}

func personaAddCmd(open Opener) *cobra.Command {
	var draft domain.Persona
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Name = args[0]
			return withSession(cmd, open, func(s *Session) error {
				p, err := s.Planner.AddPersona(cmd.Context(), draft)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draft.Demographics, "demographics", "", "Demographics")
	cmd.Flags().StringVar(&draft.PainPoints, "pain-points", "", "Pain points")
	cmd.Flags().StringVar(&draft.Behaviors, "behaviors", "", "Behaviors")
	cmd.Flags().StringVar(&draft.BuyingTriggers, "buying-triggers", "", "Buying triggers")
	return cmd
}

func personaRmCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				return s.Planner.DeletePersona(cmd.Context(), args[0])
			})
		},
	}
}

func personaLsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(s *Session) error {
				for _, p := range s.Planner.Snapshot().Personas {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
				}
				return nil
			})
		},
	}
}

func MoveCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from-stage> <from-index> <to-stage> <to-index>",
		Short: "Move an item between positions",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromIndex, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("from-index: %w", err)
			}
			toIndex, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("to-index: %w", err)
			}
			drop := reorder.DropResult{
				Source:      domain.Location{StageID: args[0], Index: fromIndex},
				Destination: &domain.Location{StageID: args[2], Index: toIndex},
			}
			return withSession(cmd, open, func(s *Session) error {
				if err := s.Planner.MoveItem(cmd.Context(), drop); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBoard(s.Planner.Snapshot().JourneyMap))
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
