package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"osteosex/config"
	"osteosex/db"
	"osteosex/measurement"
	"osteosex/ml"
	"osteosex/store"
)

var (
	modelFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "Container name in the models directory, or a path to a container file",
		Required: true,
	}

	methodFlag = &cli.StringFlag{
		Name:     "method",
		Usage:    "Classification method, e.g. LDA or SVM",
		Required: true,
	}

	inputFlag = &cli.StringFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "CSV measurement table; first column is the sample id",
		Required: true,
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "CSV result log to append to (optional)",
	}

	boneFlag = &cli.StringFlag{
		Name:     "bone",
		Usage:    "Bone name, e.g. Femur",
		Required: true,
	}

	sideFlag = &cli.StringFlag{
		Name:     "side",
		Usage:    "Side of the bone, e.g. Left",
		Required: true,
	}

	slotsFlag = &cli.StringFlag{
		Name:  "slots",
		Usage: "Comma separated classifier slots to run",
		Value: "1",
	}

	populationFlag = &cli.StringFlag{
		Name:     "population",
		Usage:    "Reference population of the vertebral classifiers",
		Required: true,
	}

	vertebraFlag = &cli.StringFlag{
		Name:     "vertebra",
		Usage:    "Vertebra label, e.g. T12",
		Required: true,
	}

	csgCmd = &cli.Command{
		Name:   "csg",
		Usage:  "Estimates sex from long-bone cross-sectional geometry",
		Action: cmdEstimateCSG,
		Flags: []cli.Flag{
			modelFlag,
			methodFlag,
			boneFlag,
			sideFlag,
			slotsFlag,
			inputFlag,
			outputFlag,
		},
	}

	vertebraCmd = &cli.Command{
		Name:   "vertebra",
		Usage:  "Estimates sex from vertebral measurements",
		Action: cmdEstimateVertebra,
		Flags: []cli.Flag{
			modelFlag,
			methodFlag,
			populationFlag,
			vertebraFlag,
			inputFlag,
			outputFlag,
		},
	}

	elementsCmd = &cli.Command{
		Name:   "elements",
		Usage:  "Lists the elements and slots a container can evaluate",
		Action: cmdListElements,
		Flags: []cli.Flag{
			modelFlag,
		},
	}
)

// sampleEvaluator scores the measurements of one sample.
type sampleEvaluator func(values []float64) ([]ml.Estimation, error)

// session holds what every estimation command needs.
type session struct {
	cfg       *config.Config
	logger    *zap.Logger
	container *ml.Container
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := newLogger(c, cfg)
	container, err := openContainer(cfg, c.String(modelFlag.Name), logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, container: container}, nil
}

// openContainer loads a container file directly when model looks like a
// path, otherwise resolves it by name in the configured models directory.
func openContainer(cfg *config.Config, model string, logger *zap.Logger) (*ml.Container, error) {
	if strings.ContainsAny(model, `/\`) || filepath.Ext(model) != "" {
		return ml.LoadContainer(model)
	}
	models, err := store.New(cfg.Models.Dir, 1, logger)
	if err != nil {
		return nil, err
	}
	return models.Get(model)
}

func cmdEstimateCSG(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	slots, err := parseSlots(c.String(slotsFlag.Name))
	if err != nil {
		return err
	}
	method := ml.Method(c.String(methodFlag.Name))
	element := ml.ElementKey(c.String(boneFlag.Name), c.String(sideFlag.Name))
	return s.run(c, element, method, func(values []float64) ([]ml.Estimation, error) {
		return ml.EvaluateCSG(s.container, s.cfg.CSG, method, element, slots, values)
	})
}

func cmdEstimateVertebra(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	method := ml.Method(c.String(methodFlag.Name))
	population, vertebra := c.String(populationFlag.Name), c.String(vertebraFlag.Name)
	return s.run(c, ml.VertebraKey(population, vertebra), method, func(values []float64) ([]ml.Estimation, error) {
		result, err := ml.EvaluateVertebra(s.container, method, population, vertebra, values)
		if err != nil {
			return nil, err
		}
		return []ml.Estimation{result}, nil
	})
}

func cmdListElements(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync()
	return printElements(c.App.Writer, s.container)
}

// run reads the input table, evaluates every sample, prints the rows and
// appends them to the configured logs.
func (s *session) run(c *cli.Context, element string, method ml.Method, eval sampleEvaluator) error {
	samples, err := s.readSamples(c.String(inputFlag.Name))
	if err != nil {
		return err
	}
	rows, failed := estimateSamples(samples, element, method, eval, s.logger)

	if err := measurement.WriteRows(c.App.Writer, rows, true); err != nil {
		return err
	}
	if path := c.String(outputFlag.Name); path != "" && len(rows) > 0 {
		if err := measurement.AppendRows(path, rows); err != nil {
			return err
		}
		s.logger.Info("results appended", zap.String("path", path), zap.Int("rows", len(rows)))
	}
	if !c.Bool(noDBFlag.Name) && len(rows) > 0 {
		if err := db.InitDB(s.cfg.Database.Path); err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveEstimations(rows); err != nil {
			return err
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d samples could not be estimated", failed, len(samples)), 1)
	}
	return nil
}

func (s *session) readSamples(path string) ([]ml.Sample, error) {
	comma, err := measurement.ParseComma(s.cfg.Measurements.Comma)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	samples, err := measurement.ReadSamples(file, measurement.Options{
		Encoding: s.cfg.Measurements.Encoding,
		Comma:    comma,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.logger.Debug("samples read", zap.String("path", path), zap.Int("samples", len(samples)))
	return samples, nil
}

// estimateSamples evaluates each sample independently. A failing sample is
// logged and skipped; the others still produce rows.
func estimateSamples(samples []ml.Sample, element string, method ml.Method, eval sampleEvaluator, logger *zap.Logger) ([]ml.Row, int) {
	rows := make([]ml.Row, 0, len(samples))
	failed := 0
	for _, sample := range samples {
		results, err := eval(sample.Features)
		if err != nil {
			failed++
			logger.Warn("sample skipped",
				zap.String("sample_id", sample.ID),
				zap.String("element", element),
				zap.Error(err))
			continue
		}
		rows = append(rows, ml.Rows(sample.ID, element, method, results)...)
	}
	return rows, failed
}

func parseSlots(s string) ([]ml.Slot, error) {
	parts := strings.Split(s, ",")
	slots := make([]ml.Slot, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q", part)
		}
		slots = append(slots, ml.Slot(n))
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no slots given")
	}
	return slots, nil
}

func printElements(w io.Writer, c *ml.Container) error {
	for _, method := range c.Methods() {
		keys, err := c.Elements(method)
		if err != nil {
			return err
		}
		for _, key := range keys {
			slots, err := c.Slots(method, key)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\t%v\n", method, key, slots); err != nil {
				return err
			}
		}
	}
	return nil
}
