package services

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"videonotes-backend/internal/models"
	"videonotes-backend/internal/transcript"
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// GetTranscript fetches the captions for a YouTube video as transcript
// text. The timedtext path yields "[mm:ss] text" lines so downstream
// timestamp segmentation has real offsets to work with; the
// transcript-API path joins plain caption text.
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	tr, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		tr, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			legacy, legacyErr := s.getTranscriptViaTimedText(videoID)
			if legacyErr == nil {
				return legacy, nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, legacyErr)
		}
	}

	if len(tr.Entries) == 0 {
		return "", fmt.Errorf("subtitle track is empty")
	}

	var fullText strings.Builder
	for _, entry := range tr.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("subtitle text resolved to empty content")
	}

	return cleaned, nil
}

func (s *YouTubeService) getTranscriptViaTimedText(videoID string) (string, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, _ := http.NewRequest("GET", pageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read YouTube page: %w", err)
	}

	pageHTML := string(body)
	log.Printf("TimedText fallback: fetched YouTube page for %s (%d bytes)", videoID, len(pageHTML))

	captionURL, err := extractCaptionURL(pageHTML)
	if err != nil {
		return "", err
	}

	captionResp, err := s.httpClient.Get(captionURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	return parseCaptionsXML(captionBody)
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		re2 := regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
		matches = re2.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	tracksJSON := matches[1]
	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(tracksJSON)
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

// parseCaptionsXML turns a timedtext document into timestamped
// transcript lines.
func parseCaptionsXML(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var lines []string
	for _, t := range tt.Texts {
		text := html.UnescapeString(t.Text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		start := 0
		if f, err := strconv.ParseFloat(t.Start, 64); err == nil && f > 0 {
			start = int(f)
		}

		lines = append(lines, transcript.FormatTimestamp(start)+" "+text)
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("captions XML empty")
	}

	return strings.Join(lines, "\n"), nil
}

// GetVideoMetadata fetches title, channel, duration, and thumbnail for a
// video ID.
func (s *YouTubeService) GetVideoMetadata(videoID string) (*models.YouTubeMetadata, error) {
	video, err := s.ytClient.GetVideo(WatchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	meta := &models.YouTubeMetadata{
		VideoID:     videoID,
		Title:       video.Title,
		ChannelName: video.Author,
		Duration:    int(video.Duration / time.Second),
	}

	if len(video.Thumbnails) > 0 {
		best := video.Thumbnails[0]
		for _, th := range video.Thumbnails {
			if th.Width > best.Width {
				best = th
			}
		}
		meta.ThumbnailURL = best.URL
	} else {
		meta.ThumbnailURL = fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
	}

	return meta, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID pulls the 11-character video ID out of any of the usual
// YouTube URL forms (watch, youtu.be, shorts, embed, live). Returns ""
// when no ID can be found.
func ExtractVideoID(url string) string {
	parsed, err := urlpkg.Parse(url)
	if err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		// youtube.com/watch?v=VIDEO_ID
		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); len(v) == 11 {
				return v
			}

			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "live", "v":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		// youtu.be/VIDEO_ID
		if strings.Contains(host, "youtu.be") {
			candidate := strings.Split(path, "/")[0]
			if len(candidate) == 11 {
				return candidate
			}
		}
	}

	// Fallback regex for unusual URL forms
	re := regexp.MustCompile(`(?:v=|/v/|youtu\.be/|embed/|shorts/|live/)([a-zA-Z0-9_-]{11})`)
	if m := re.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}

	return ""
}
