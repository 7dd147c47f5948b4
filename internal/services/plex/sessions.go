package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// MediaContainer represents the XML envelope Plex wraps every response in
type MediaContainer struct {
	XMLName xml.Name  `xml:"MediaContainer"`
	Size    int       `xml:"size,attr"`
	Tracks  []TrackEl `xml:"Track"`
}

// TrackEl represents a music track element, either an active session from
// /status/sessions or a library item from /library/metadata
type TrackEl struct {
	SessionKey  string `xml:"sessionKey,attr"`
	RatingKey   string `xml:"ratingKey,attr"`
	GUID        string `xml:"guid,attr"`
	Title       string `xml:"title,attr"`
	ParentTitle string `xml:"parentTitle,attr"`      // Album
	GrandTitle  string `xml:"grandparentTitle,attr"` // Artist
	ViewOffset  string `xml:"viewOffset,attr"`
	Duration    string `xml:"duration,attr"`
	UserRating  string `xml:"userRating,attr"`
	Player      Player `xml:"Player"`
}

// Player represents the client device reporting a session
type Player struct {
	Title   string `xml:"title,attr"`
	Product string `xml:"product,attr"` // e.g. "Plexamp"
}

// PlaybackSession is one active playback as reported by /status/sessions
type PlaybackSession struct {
	SessionKey       string
	TrackID          string
	GUID             string
	Title            string
	Artist           string
	Album            string
	Player           string
	ProgressFraction float64
}

// TrackDetail is the post-playback view of a track from /library/metadata,
// the only place the final userRating is reliably present
type TrackDetail struct {
	TrackID   string
	GUID      string
	Title     string
	Artist    string
	Album     string
	RawRating string
}

// GetActiveSessions returns the music sessions currently playing.
// clientFilter, when non-empty, restricts results to sessions reported by
// a player whose product or title matches it.
func (c *Client) GetActiveSessions(ctx context.Context, clientFilter string) ([]PlaybackSession, error) {
	var container MediaContainer
	if err := c.doRequest(ctx, "/status/sessions", &container); err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	var sessions []PlaybackSession
	for _, track := range container.Tracks {
		if clientFilter != "" && track.Player.Product != clientFilter && track.Player.Title != clientFilter {
			c.logger.WithFields(logrus.Fields{
				"player": track.Player.Product,
				"title":  track.Title,
			}).Debug("Session filtered out by client filter")
			continue
		}

		session := PlaybackSession{
			SessionKey:       sessionKey(track),
			TrackID:          track.RatingKey,
			GUID:             track.GUID,
			Title:            track.Title,
			Artist:           track.GrandTitle,
			Album:            track.ParentTitle,
			Player:           playerName(track.Player),
			ProgressFraction: progressFraction(track.ViewOffset, track.Duration),
		}
		sessions = append(sessions, session)
	}

	c.logger.WithField("count", len(sessions)).Debug("Plex sessions fetched")
	return sessions, nil
}

// GetTrackDetail fetches final metadata for a track, including the rating
func (c *Client) GetTrackDetail(ctx context.Context, trackID string) (*TrackDetail, error) {
	var container MediaContainer
	if err := c.doRequest(ctx, metadataPath(trackID), &container); err != nil {
		return nil, fmt.Errorf("failed to fetch track metadata: %w", err)
	}

	if len(container.Tracks) == 0 {
		return nil, fmt.Errorf("no track element in metadata for %s", trackID)
	}

	track := container.Tracks[0]
	return &TrackDetail{
		TrackID:   track.RatingKey,
		GUID:      track.GUID,
		Title:     track.Title,
		Artist:    track.GrandTitle,
		Album:     track.ParentTitle,
		RawRating: track.UserRating,
	}, nil
}

// sessionKey picks a stable per-playback key. Plex always sets sessionKey
// on live sessions, but fall back to the rating key just in case.
func sessionKey(track TrackEl) string {
	if track.SessionKey != "" {
		return track.SessionKey
	}
	if track.RatingKey != "" {
		return track.RatingKey
	}
	return track.GrandTitle + "-" + track.Title
}

func playerName(p Player) string {
	if p.Product != "" {
		return p.Product
	}
	return p.Title
}

// progressFraction computes how much of the track has played, for logging
// and the now-playing snapshot only
func progressFraction(viewOffset, duration string) float64 {
	offset, err := strconv.ParseFloat(viewOffset, 64)
	if err != nil {
		return 0
	}
	total, err := strconv.ParseFloat(duration, 64)
	if err != nil || total <= 0 {
		return 0
	}

	frac := offset / total
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}
