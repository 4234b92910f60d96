package processing

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tono-megu/ai-video-gen/models"
)

// FFmpegService shells out to ffmpeg to compose the final video from
// per-section slides and narration audio.
type FFmpegService struct {
	Width  int
	Height int
	FPS    int
}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{Width: 1920, Height: 1080, FPS: 30}
}

// CheckFFmpeg reports whether the ffmpeg binary is runnable.
func (s *FFmpegService) CheckFFmpeg(ctx context.Context) bool {
	err := exec.CommandContext(ctx, "ffmpeg", "-version").Run()
	return err == nil
}

// ComposeVideo renders each section as a still-image segment (with narration
// audio when present), concatenates the segments, and returns the result as
// an mp4 data URL.
func (s *FFmpegService) ComposeVideo(ctx context.Context, projectID uint, sections []models.Section) (string, error) {
	if !s.CheckFFmpeg(ctx) {
		return "", fmt.Errorf("ffmpeg is not installed")
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("no sections to compose")
	}

	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("compose_%d_", projectID))
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	var segments []string
	for idx, section := range sections {
		duration := section.Duration
		if duration <= 0 {
			duration = 5.0
		}

		slideFile := filepath.Join(tmpDir, fmt.Sprintf("slide_%03d.png", idx))
		if err := s.createPlaceholderImage(ctx, slideFile, section.Type); err != nil {
			return "", err
		}

		audioFile := ""
		if strings.HasPrefix(section.NarrationAudioPath, "data:audio") {
			parts := strings.SplitN(section.NarrationAudioPath, ",", 2)
			if len(parts) == 2 {
				audioData, err := base64.StdEncoding.DecodeString(parts[1])
				if err == nil {
					audioFile = filepath.Join(tmpDir, fmt.Sprintf("audio_%03d.mp3", idx))
					if err := os.WriteFile(audioFile, audioData, 0o644); err != nil {
						return "", err
					}
				}
			}
		}

		segmentFile := filepath.Join(tmpDir, fmt.Sprintf("segment_%03d.mp4", idx))
		if err := s.createSegment(ctx, slideFile, audioFile, segmentFile, duration); err != nil {
			return "", err
		}
		segments = append(segments, segmentFile)
	}

	outputFile := filepath.Join(tmpDir, "output.mp4")
	if err := s.concatSegments(ctx, segments, outputFile); err != nil {
		return "", err
	}

	videoBytes, err := os.ReadFile(outputFile)
	if err != nil {
		return "", err
	}
	return "data:video/mp4;base64," + base64.StdEncoding.EncodeToString(videoBytes), nil
}

// createPlaceholderImage renders a solid background frame for a section.
func (s *FFmpegService) createPlaceholderImage(ctx context.Context, outputPath, sectionType string) error {
	colors := map[string]string{
		models.SectionTitle:   "#1a1a2e",
		models.SectionSlide:   "#16213e",
		models.SectionCode:    "#0d1117",
		models.SectionSummary: "#1a1a2e",
	}
	color, ok := colors[sectionType]
	if !ok {
		color = "#1a1a2e"
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=1", color, s.Width, s.Height),
		"-frames:v", "1",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg placeholder image failed: %v: %s", err, out)
	}
	return nil
}

func (s *FFmpegService) createSegment(ctx context.Context, imagePath, audioPath, outputPath string, duration float64) error {
	var args []string
	if audioPath != "" {
		// Image + narration audio; segment length follows the audio.
		args = []string{"-y",
			"-loop", "1",
			"-i", imagePath,
			"-i", audioPath,
			"-c:v", "libx264",
			"-tune", "stillimage",
			"-c:a", "aac",
			"-b:a", "192k",
			"-pix_fmt", "yuv420p",
			"-shortest",
			outputPath,
		}
	} else {
		args = []string{"-y",
			"-loop", "1",
			"-i", imagePath,
			"-c:v", "libx264",
			"-t", fmt.Sprintf("%g", duration),
			"-pix_fmt", "yuv420p",
			"-r", fmt.Sprintf("%d", s.FPS),
			outputPath,
		}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg segment creation failed: %v: %s", err, out)
	}
	return nil
}

func (s *FFmpegService) concatSegments(ctx context.Context, segments []string, outputPath string) error {
	if len(segments) == 1 {
		data, err := os.ReadFile(segments[0])
		if err != nil {
			return err
		}
		return os.WriteFile(outputPath, data, 0o644)
	}

	var list strings.Builder
	for _, segment := range segments {
		fmt.Fprintf(&list, "file '%s'\n", segment)
	}
	listFile := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	if err := os.WriteFile(listFile, []byte(list.String()), 0o644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %v: %s", err, out)
	}
	return nil
}

// EstimateFileSize approximates the output size in bytes: roughly 5MB per
// minute of 1080p30 video.
func (s *FFmpegService) EstimateFileSize(totalDuration float64) int64 {
	return int64(totalDuration / 60 * 5 * 1024 * 1024)
}
