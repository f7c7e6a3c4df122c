/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/heirloom/internal/models"
)

// topicsFile is the on-disk shape of a topic list:
//
//	topics:
//	  - id: spring-launch
//	    title: Spring launch
//	    summary: What is new this season
//	    keywords: [launch, spring]
//	    social_posts: 2
type topicsFile struct {
	Topics []models.Topic `yaml:"topics"`
}

func readTopicsFile(path string) ([]models.Topic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()
	return parseTopics(f)
}

func parseTopics(r io.Reader) ([]models.Topic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}

	var doc topicsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("topics file is empty")
		}
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if len(doc.Topics) == 0 {
		return nil, fmt.Errorf("topics file lists no topics")
	}

	seen := make(map[string]int, len(doc.Topics))
	for i, t := range doc.Topics {
		if t.Title == "" {
			return nil, fmt.Errorf("topic %d: title is required", i)
		}
		if t.SocialPosts < 0 {
			return nil, fmt.Errorf("topic %d: social_posts must not be negative", i)
		}
		if t.ID == "" {
			continue
		}
		if prev, ok := seen[t.ID]; ok {
			return nil, fmt.Errorf("topic %d: id %q already used by topic %d", i, t.ID, prev)
		}
		seen[t.ID] = i
	}
	return doc.Topics, nil
}
