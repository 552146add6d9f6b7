// 命令行导出工具：在不启动 HTTP 服务的情况下执行任一查询操作并输出 JSON/CSV
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"antmaps-api/internal/config"
	"antmaps-api/internal/engine"
	"antmaps-api/internal/filter"
	"antmaps-api/internal/logger"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/params"
	"antmaps-api/internal/render"
	"antmaps-api/internal/store"
	"antmaps-api/internal/utils"
)

type options struct {
	format  string
	fixture string
	out     string
}

func main() {
	for _, f := range config.EnvFiles() {
		_ = godotenv.Load(f)
	}
	if err := command().Execute(); err != nil {
		os.Exit(1)
	}
}

func command() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "antmaps-export <operation> [name=value ...]",
		Short: "Run a data query and print the result",
		Long: `Run one data query against the database (or a JSON fixture) and print the
records in the same shape the HTTP API returns.

Examples:
  antmaps-export species genus=Camponotus --format csv
  antmaps-export species-in-common bentity_id=US-48 --fixture data/fixture/antmaps.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Setup(cfg.LogLevel, cfg.LogFormat)
			if o.fixture == "" {
				o.fixture = cfg.Fixture
			}
			b, closeFn, err := open(cfg, o.fixture)
			if err != nil {
				return err
			}
			defer closeFn()
			w := cmd.OutOrStdout()
			if o.out != "" {
				f, err := os.Create(o.out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return run(cmd.Context(), engine.New(b), args, o.format, w)
		},
	}
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "output format: json or csv")
	cmd.Flags().StringVar(&o.fixture, "fixture", "", "read from a JSON fixture instead of the database")
	cmd.Flags().StringVarP(&o.out, "output", "o", "", "write to file instead of stdout")
	cmd.AddCommand(&cobra.Command{
		Use:   "ops",
		Short: "List operation names, including legacy aliases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, op := range params.Ops() {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			for name, op := range params.LegacyNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, op)
			}
			return nil
		},
	})
	return cmd
}

func open(cfg config.Config, fixture string) (engine.Backend, func(), error) {
	if fixture != "" {
		ms, err := memstore.Open(fixture)
		if err != nil {
			return nil, nil, err
		}
		return ms, func() {}, nil
	}
	st, err := store.Open(utils.PostgresDSN(cfg.DB), 2, 1)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// run：args[0] 为操作名（含旧名），其余为 name=value 参数
// 约束：参数校验失败按所选格式输出错误载荷并返回错误，便于脚本判断
func run(ctx context.Context, e *engine.Engine, args []string, format string, w io.Writer) error {
	op, ok := params.ParseOp(args[0])
	if !ok {
		return fmt.Errorf("unknown operation %q", args[0])
	}
	raw := url.Values{}
	for _, a := range args[1:] {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("argument %q is not name=value", a)
		}
		raw.Add(k, v)
	}
	f := params.ParseFormat(format)
	pc, err := params.Resolve(op, raw, e.Backend())
	if err != nil {
		var ve *params.ValidationError
		if errors.As(err, &ve) {
			_ = render.EncodeError(w, f, op, ve.Message)
		}
		return err
	}
	q, err := filter.Compose(pc)
	if err != nil {
		return err
	}
	res, err := e.Run(ctx, q)
	if err != nil {
		return err
	}
	return render.Encode(w, f, res)
}
