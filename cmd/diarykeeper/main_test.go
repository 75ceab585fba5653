package main

import (
	"testing"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/crawler"
	"diarykeeper/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSites(t *testing.T) {
	cfg := config.DefaultConfig()

	all, err := resolveSites(cfg, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, len(cfg.Sites))

	picked, err := resolveSites(cfg, []string{"nogizaka46", " Bokuao "}, false)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "Nogizaka46", picked[0].ID)
	assert.Equal(t, "Bokuao", picked[1].ID)

	_, err = resolveSites(cfg, []string{"nowhere"}, false)
	assert.Error(t, err)
}

func TestSelectMembers(t *testing.T) {
	snapshot := []models.Member{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	wanted := map[string]bool{"A": true, "C": true}

	got := selectMembers(snapshot, func(name string) bool { return wanted[name] })
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "C", got[1].Name)
}

func TestLaneStops(t *testing.T) {
	lanes := []crawler.LaneResult{
		{Lane: 0, LastPage: 3, Stop: crawler.StopDuplicate},
		{Lane: 1, LastPage: 8, Stop: crawler.StopEmpty},
	}
	assert.Equal(t, "0:duplicate@3 1:empty_page@8", laneStops(lanes))
}
