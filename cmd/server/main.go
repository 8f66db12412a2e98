// Package main runs the semantic segmentation labeling service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	goutils "go.viam.com/utils"

	"github.com/strands-project-releases/semantic-segmentation/classifier"
	"github.com/strands-project-releases/semantic-segmentation/crf"
	"github.com/strands-project-releases/semantic-segmentation/labeler"
	"github.com/strands-project-releases/semantic-segmentation/semantic"
	"github.com/strands-project-releases/semantic-segmentation/source"
	"github.com/strands-project-releases/semantic-segmentation/web"
)

var logger = golog.NewDevelopmentLogger("semantic_segmentation")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

const defaultPort = 8567

// Arguments for the command.
type Arguments struct {
	Port       goutils.NetPortFlag `flag:"0"`
	ConfigFile string              `flag:"config,required,usage=path to JSON5 config file"`
	ModelFile  string              `flag:"model,required,usage=path to the random forest model file"`
	SourceURL  string              `flag:"source,usage=base URL of the observation service"`
	DataDir    string              `flag:"data-dir,usage=serve observations from a directory of PCD files instead"`
	Debug      bool                `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = goutils.NetPortFlag(defaultPort)
	}

	loggerConfig := golog.NewDevelopmentLoggerConfig()
	if !argsParsed.Debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	baseLogger, err := loggerConfig.Build()
	if err != nil {
		return err
	}
	logger = baseLogger.Sugar().Named("semantic_segmentation")

	conf, err := labeler.ReadConfig(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	if len(conf.Classes) == 0 {
		return errors.New("config must declare the semantic classes")
	}
	names := make([]string, len(conf.Classes))
	colors := make([]string, len(conf.Classes))
	for i, c := range conf.Classes {
		names[i] = c.Name
		colors[i] = c.Color
	}
	classes, err := semantic.NewClassSet(names, colors)
	if err != nil {
		return err
	}

	// A missing or unreadable model means we never start serving.
	forest, err := classifier.LoadRandomForest(argsParsed.ModelFile)
	if err != nil {
		return errors.Wrap(err, "use download_rf.sh to fetch a pretrained model")
	}
	logger.Infow("random forest model loaded", "classes", forest.Classes(), "path", argsParsed.ModelFile)

	var src labeler.Source
	switch {
	case argsParsed.DataDir != "":
		src = &source.DirSource{Dir: argsParsed.DataDir, FrameID: "map"}
	case argsParsed.SourceURL != "":
		src = source.NewHTTPSource(argsParsed.SourceURL, logger)
	default:
		return errors.New("either -source or -data-dir is required")
	}

	partitioner := labeler.GridPartitioner{VoxelSize: conf.VoxelSize}
	solver := crf.NewMeanField()
	broadcast := labeler.NewBroadcast()

	// The two request variants run as independent pipeline instances with
	// separate waypoint stores, publishing into the same broadcast.
	whole, err := labeler.New(conf, classes, src, partitioner, forest, solver, broadcast, logger.Named("whole"))
	if err != nil {
		return err
	}
	instance, err := labeler.New(conf, classes, src, partitioner, forest, solver, broadcast, logger.Named("instance"))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", argsParsed.Port),
		Handler:           web.NewServer(whole, instance, broadcast, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var serveErr error
	done := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(done)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	})

	logger.Infow("semantic segmentation service ready", "port", int(argsParsed.Port))
	goutils.ContextMainReadyFunc(ctx)()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	<-done
	return multierr.Combine(err, serveErr)
}
