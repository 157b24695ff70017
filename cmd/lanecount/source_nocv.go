//go:build !withcv

package main

import (
	"errors"

	"github.com/banshee-data/lanecount/internal/config"
	"github.com/banshee-data/lanecount/internal/pipeline"
)

func openVideo(input string, cfg *config.CountingConfig) (pipeline.FrameSource, error) {
	return nil, errors.New("video input needs a build with -tags withcv")
}
