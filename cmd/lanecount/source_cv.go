//go:build withcv

package main

import (
	"github.com/banshee-data/lanecount/internal/config"
	"github.com/banshee-data/lanecount/internal/pipeline"
	"github.com/banshee-data/lanecount/internal/vision"
)

func openVideo(input string, cfg *config.CountingConfig) (pipeline.FrameSource, error) {
	src, err := vision.NewVideoSource(input, vision.VideoOptions{
		History:      cfg.GetMOGHistory(),
		VarThreshold: cfg.GetMOGThreshold(),
		DilateKernel: cfg.GetDilateKernel(),
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
