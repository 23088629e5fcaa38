package voice

import (
	"math"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	MinTTL     = 60 * time.Second
	MaxTTL     = 3600 * time.Second
	DefaultTTL = 900 * time.Second
)

var errTokenSigningFailed = errors.New("failed to sign token")

// VideoGrant is the room capability bundle handed to a participant.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanPublishData bool   `json:"canPublishData"`
	CanSubscribe   bool   `json:"canSubscribe"`
}

// RoomAgentDispatch asks the media server to start the named agent in the room.
type RoomAgentDispatch struct {
	AgentName string `json:"agentName"`
	Metadata  string `json:"metadata,omitempty"`
}

type RoomConfiguration struct {
	Agents []RoomAgentDispatch `json:"agents,omitempty"`
}

// Claims is the payload of a real-time access token.
type Claims struct {
	jwt.StandardClaims
	Name       string             `json:"name,omitempty"`
	Video      *VideoGrant        `json:"video,omitempty"`
	RoomConfig *RoomConfiguration `json:"roomConfig,omitempty"`
}

// TTL returns the validity window of the token.
func (c Claims) TTL() time.Duration {
	return time.Duration(c.ExpiresAt-c.NotBefore) * time.Second
}

// ClampTTL turns the requested seconds into a token lifetime within [MinTTL, MaxTTL].
// nil means DefaultTTL.
func ClampTTL(seconds *float64) time.Duration {
	if seconds == nil || math.IsNaN(*seconds) {
		return DefaultTTL
	}
	switch {
	case *seconds <= MinTTL.Seconds():
		return MinTTL
	case *seconds >= MaxTTL.Seconds():
		return MaxTTL
	}
	return time.Duration(*seconds) * time.Second
}

// NewClaims grants identity full participation in room for ttl.
// An agentName adds a dispatch for that agent.
func NewClaims(apiKey, identity, name, room, agentName string, ttl time.Duration) *Claims {
	now := NowFunc()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    apiKey,
			Subject:   identity,
			Id:        uuid.New().String(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Name: name,
		Video: &VideoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanPublishData: true,
			CanSubscribe:   true,
		},
	}
	if agentName != "" {
		claims.RoomConfig = &RoomConfiguration{
			Agents: []RoomAgentDispatch{{AgentName: agentName}},
		}
	}
	return claims
}

// SignToken signs claims with HS256 using secret.
func SignToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(errTokenSigningFailed, err.Error())
	}
	return ss, nil
}

// ParseToken verifies a token signed by SignToken and returns its claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	return claims, nil
}
