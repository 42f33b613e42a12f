package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// The backend exposes its read model over a GraphQL endpoint. The
// client sends plain query documents and decodes the data object; it
// does not need a schema-aware library for that.

const queryEndpoint = "/api/query"

type gqlRequest struct {
	Query string `json:"query"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) graphql(ctx context.Context, query string, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query})
	if err != nil {
		return errors.Wrap(err, "[Client.graphql] Marshal")
	}

	var resp gqlResponse
	if err := c.post(ctx, queryEndpoint, bytes.NewReader(body), &resp); err != nil {
		return errors.Wrap(err, "[Client.graphql]")
	}
	if len(resp.Errors) > 0 {
		return errors.Errorf("[Client.graphql] query error: %s", resp.Errors[0].Message)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errors.Wrap(err, "[Client.graphql] Unmarshal data")
	}
	return nil
}

// ChallengeBasic is the summary block of a challenge definition.
type ChallengeBasic struct {
	Author      string   `json:"author"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Description []string `json:"description"`
}

// Stage is one graded step of a challenge.
type Stage struct {
	Name        string   `json:"name"`
	Description []string `json:"description"`
}

// StartPoint is a template repository a practice repo can start from.
type StartPoint struct {
	Name        string   `json:"name"`
	Description []string `json:"description"`
}

// Challenge is a browsable coding challenge.
type Challenge struct {
	FolderName  string         `json:"folderName"`
	Basic       ChallengeBasic `json:"basic"`
	StartPoints []StartPoint   `json:"startPoints"`
	Stages      []Stage        `json:"stages"`
}

// Repository is a per-user practice repository and its stage progress.
type Repository struct {
	RepositoryID        string `json:"repositoryId"`
	Subject             string `json:"subject"`
	Provider            string `json:"provider"`
	ChallengeFolderName string `json:"challengeFolderName"`
	Startpoint          string `json:"startpoint"`
	Stage               int32  `json:"stage"`
	TotalStages         int32  `json:"totalStages"`
	CreateTime          string `json:"createTime"`
	UpdateTime          string `json:"updateTime"`
}

// Testing is one recorded test run against a practice repository.
type Testing struct {
	RepositoryID string `json:"repositoryId"`
	Serial       int32  `json:"serial"`
	Stage        int32  `json:"stage"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Log          string `json:"log"`
	CreateTime   string `json:"createTime"`
	RunStartTime string `json:"runStartTime"`
	RunEndTime   string `json:"runEndTime"`
}

// UserAttribute is one key/value pair attached to a user profile.
type UserAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// User is a platform user profile.
type User struct {
	Subject    string          `json:"subject"`
	Provider   string          `json:"provider"`
	CreateTime string          `json:"createTime"`
	UpdateTime string          `json:"updateTime"`
	Attributes []UserAttribute `json:"attributes"`
}

// Challenges lists every published challenge.
func (c *Client) Challenges(ctx context.Context) ([]Challenge, error) {
	var data struct {
		Challenges []Challenge `json:"challenges"`
	}
	query := `{ challenges { folderName basic { author source title description } startPoints { name description } stages { name description } } }`
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Challenges]")
	}
	return data.Challenges, nil
}

// Challenge fetches one challenge by its folder name.
func (c *Client) Challenge(ctx context.Context, folderName string) (*Challenge, error) {
	var data struct {
		Challenge *Challenge `json:"challenge"`
	}
	query := fmt.Sprintf(`{ challenge(folderName: %q) { folderName basic { author source title description } startPoints { name description } stages { name description } } }`, folderName)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Challenge]")
	}
	if data.Challenge == nil {
		return nil, errors.Errorf("[Client.Challenge] challenge %q not found", folderName)
	}
	return data.Challenge, nil
}

// Repositories lists the practice repositories owned by a principal.
func (c *Client) Repositories(ctx context.Context, subject, provider string) ([]Repository, error) {
	var data struct {
		Repositories []Repository `json:"repositories"`
	}
	query := fmt.Sprintf(`{ repositories(subject: %q, provider: %q) { repositoryId subject provider challengeFolderName startpoint stage totalStages createTime updateTime } }`, subject, provider)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Repositories]")
	}
	return data.Repositories, nil
}

// Repository fetches one practice repository by id.
func (c *Client) Repository(ctx context.Context, repositoryID string) (*Repository, error) {
	var data struct {
		Repository *Repository `json:"repository"`
	}
	query := fmt.Sprintf(`{ repository(repositoryId: %q) { repositoryId subject provider challengeFolderName startpoint stage totalStages createTime updateTime } }`, repositoryID)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Repository]")
	}
	if data.Repository == nil {
		return nil, errors.Errorf("[Client.Repository] repository %q not found", repositoryID)
	}
	return data.Repository, nil
}

// TestingsByRepository lists every recorded test run for a repository.
func (c *Client) TestingsByRepository(ctx context.Context, repositoryID string) ([]Testing, error) {
	var data struct {
		TestingsByRepository []Testing `json:"testingsByRepository"`
	}
	query := fmt.Sprintf(`{ testingsByRepository(repositoryId: %q) { repositoryId serial stage status message log createTime runStartTime runEndTime } }`, repositoryID)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.TestingsByRepository]")
	}
	return data.TestingsByRepository, nil
}

// TestingsByStage lists the test runs for one stage of a repository.
func (c *Client) TestingsByStage(ctx context.Context, repositoryID string, stage int32) ([]Testing, error) {
	var data struct {
		TestingsByStage []Testing `json:"testingsByStage"`
	}
	query := fmt.Sprintf(`{ testingsByStage(repositoryId: %q, stage: %d) { repositoryId serial stage status message log createTime runStartTime runEndTime } }`, repositoryID, stage)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.TestingsByStage]")
	}
	return data.TestingsByStage, nil
}

// Testing fetches one recorded test run by its serial number.
func (c *Client) Testing(ctx context.Context, repositoryID string, serial int32) (*Testing, error) {
	var data struct {
		Testing *Testing `json:"testing"`
	}
	query := fmt.Sprintf(`{ testing(repositoryId: %q, serial: %d) { repositoryId serial stage status message log createTime runStartTime runEndTime } }`, repositoryID, serial)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Testing]")
	}
	if data.Testing == nil {
		return nil, errors.Errorf("[Client.Testing] testing %q/%d not found", repositoryID, serial)
	}
	return data.Testing, nil
}

// UserProfile fetches a user profile with its attributes.
func (c *Client) UserProfile(ctx context.Context, subject, provider string) (*User, error) {
	var data struct {
		User *User `json:"user"`
	}
	query := fmt.Sprintf(`{ user(subject: %q, provider: %q) { subject provider createTime updateTime attributes { key value } } }`, subject, provider)
	if err := c.graphql(ctx, query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.UserProfile]")
	}
	if data.User == nil {
		return nil, errors.Errorf("[Client.UserProfile] user %q not found", subject)
	}
	return data.User, nil
}
