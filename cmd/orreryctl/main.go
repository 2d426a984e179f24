// Command orreryctl drives a running orrery-server over its control
// service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/orrery/internal/control"
	"github.com/signalsfoundry/orrery/internal/logging"
)

// cli holds the flags shared by every subcommand.
type cli struct {
	addr      string
	timeout   time.Duration
	requestID string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "orreryctl",
		Short: "Control a running orrery scene",
		Long: `orreryctl talks to the SceneControl gRPC service of orrery-server.

Available subcommands:
  pick      - Pick a body by pixel or focus one by name
  hover     - Move the pointer for hover resolution
  close     - Close the focus view and return the camera home
  rates     - Change the orbital, rotation or light multipliers
  resize    - Resize the viewport
  add-body  - Add a body from a YAML or JSON document
  snapshot  - Print the latest frame state
  info      - Print the info panel strings for a body`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.addr, "addr", envOr("ORRERY_GRPC_ADDR", "127.0.0.1:7450"), "control service address")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Second, "per-call timeout")
	root.PersistentFlags().StringVar(&c.requestID, "request-id", "", "request id sent as x-request-id (generated when empty)")

	root.AddCommand(
		c.pickCmd(),
		c.hoverCmd(),
		c.closeCmd(),
		c.ratesCmd(),
		c.resizeCmd(),
		c.addBodyCmd(),
		c.snapshotCmd(),
		c.infoCmd(),
	)
	return root
}

func (c *cli) pickCmd() *cobra.Command {
	var (
		x, y float64
		body string
	)
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick the body under a pixel, or focus a body by name",
		Example: `  orreryctl pick --x 960 --y 540
  orreryctl pick --body Saturn`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := map[string]any{"x": x, "y": y}
			if body != "" {
				req = map[string]any{"body": body}
			} else if !cmd.Flags().Changed("x") || !cmd.Flags().Changed("y") {
				return fmt.Errorf("pick needs --body or both --x and --y")
			}
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				in, err := structpb.NewStruct(req)
				if err != nil {
					return nil, err
				}
				return client.Pick(ctx, in)
			})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "pointer y in pixels")
	cmd.Flags().StringVar(&body, "body", "", "body to focus directly")
	return cmd
}

func (c *cli) hoverCmd() *cobra.Command {
	var x, y float64
	cmd := &cobra.Command{
		Use:   "hover",
		Short: "Move the pointer; the hovered body resolves on the next frame",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				in, err := structpb.NewStruct(map[string]any{"x": x, "y": y})
				if err != nil {
					return nil, err
				}
				return client.Hover(ctx, in)
			})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "pointer y in pixels")
	return cmd
}

func (c *cli) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the focus view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				return client.Close(ctx, &emptypb.Empty{})
			})
		},
	}
}

func (c *cli) ratesCmd() *cobra.Command {
	var orbital, rotation, light float64
	cmd := &cobra.Command{
		Use:     "rates",
		Short:   "Set the orbital, rotation or light multipliers",
		Example: "  orreryctl rates --orbital 2 --light 3.5",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := map[string]any{}
			for name, v := range map[string]float64{"orbital": orbital, "rotation": rotation, "light": light} {
				if cmd.Flags().Changed(name) {
					req[name] = v
				}
			}
			if len(req) == 0 {
				return fmt.Errorf("rates needs at least one of --orbital, --rotation, --light")
			}
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				in, err := structpb.NewStruct(req)
				if err != nil {
					return nil, err
				}
				return client.SetRates(ctx, in)
			})
		},
	}
	cmd.Flags().Float64Var(&orbital, "orbital", 1, "orbital speed multiplier")
	cmd.Flags().Float64Var(&rotation, "rotation", 1, "self-rotation multiplier")
	cmd.Flags().Float64Var(&light, "light", 1, "star light intensity")
	return cmd
}

func (c *cli) resizeCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Resize the viewport",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				in, err := structpb.NewStruct(map[string]any{"width": width, "height": height})
				if err != nil {
					return nil, err
				}
				return client.Resize(ctx, in)
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 1920, "viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "viewport height in pixels")
	return cmd
}

func (c *cli) addBodyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-body FILE",
		Short: "Add a body described by a YAML or JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readBody(args[0])
			if err != nil {
				return err
			}
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				return client.AddBody(ctx, in)
			})
		},
	}
}

func (c *cli) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the state of the latest frame",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				return client.Snapshot(ctx, &emptypb.Empty{})
			})
		},
	}
}

func (c *cli) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info BODY",
		Short: "Print the info panel strings for a body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, func(ctx context.Context, client *control.SceneControlClient) (proto.Message, error) {
				in, err := structpb.NewStruct(map[string]any{"body": args[0]})
				if err != nil {
					return nil, err
				}
				return client.Info(ctx, in)
			})
		},
	}
}

// call dials the server, runs fn with a bounded context and prints the
// response as JSON.
func (c *cli) call(cmd *cobra.Command, fn func(context.Context, *control.SceneControlClient) (proto.Message, error)) error {
	conn, err := grpc.NewClient(c.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	id := c.requestID
	if id == "" {
		id = logging.NewID()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, control.RequestIDMetadataKey, id)

	resp, err := fn(ctx, control.NewSceneControlClient(conn))
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// readBody decodes a body document. YAML is a superset of JSON so one
// decoder serves both.
func readBody(path string) (*structpb.Struct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	st, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return st, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
