// Package indexer: офлайн-сборка и проверка индекса похожих изображений.
package indexer

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix: любой флаг можно задать переменной INDEXER_<FLAG>, например INDEXER_PUBLISH_QDRANT=true.
const envPrefix = "INDEXER"

type rootState struct {
	cfgFile string
	logger  logger.Logger
}

// NewRootCmd собирает дерево команд. Логгер передаётся снаружи, чтобы тесты могли его заглушить.
func NewRootCmd(log logger.Logger) *cobra.Command {
	st := &rootState{logger: log}

	root := &cobra.Command{
		Use:   "indexer",
		Short: "Build and inspect the similar-image index of the product catalog",
		Long: `indexer embeds every catalog image and writes a flat L2 index together
with the row -> product_id table. The server loads these artifacts at startup.

Examples:
  indexer build --source manifest --manifest catalog.yaml --out data
  indexer build --source glob --dir images --pattern "*/*.jpg" --out data
  indexer build --source db --store minio --record --publish-qdrant
  indexer inspect --store file --location data`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "optional YAML file with flag values")

	root.AddCommand(newBuildCmd(st), newInspectCmd(st))
	return root
}

// Execute запускает CLI и возвращает код выхода.
func Execute() int {
	if err := NewRootCmd(logger.NewSlogLogger()).Execute(); err != nil {
		return 1
	}
	return 0
}

// bindOptions читает значения флагов с учётом файла конфигурации и переменных окружения.
// Приоритет: флаг командной строки, переменная окружения, файл, значение по умолчанию.
func (st *rootState) bindOptions(cmd *cobra.Command, out any) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if st.cfgFile != "" {
		v.SetConfigFile(st.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshalling options: %w", err)
	}
	return nil
}
