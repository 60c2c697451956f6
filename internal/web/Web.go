// Copyright 2025 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package web

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jackbister/asclog/internal/config"
	"github.com/jackbister/asclog/internal/store"
	"github.com/jackbister/asclog/internal/util"
)

const defaultPageSize = 1000
const maxPageSize = 100000

// Web serves the stored recordings over HTTP, read-only.
type Web interface {
	Serve() error
}

type webImpl struct {
	cfg  *config.Config
	repo store.Repository

	logger *slog.Logger
}

func NewWeb(cfg *config.Config, repo store.Repository, logger *slog.Logger) Web {
	return webImpl{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
	}
}

func (wi webImpl) Serve() error {
	s := http.Server{
		Addr:    wi.cfg.HttpAddr,
		Handler: wi.handler(),
	}
	wi.logger.Info("starting web server", slog.String("addr", wi.cfg.HttpAddr))
	return s.ListenAndServe()
}

func (wi webImpl) handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(util.NewGinSlogger(slog.LevelInfo, wi.logger))
	r.Use(gin.Recovery())

	r.GET("/api/v1/recordings", func(c *gin.Context) {
		recordings, err := wi.repo.List()
		if err != nil {
			wi.logger.Error("got error when listing recordings", slog.Any("error", err))
			c.String(http.StatusInternalServerError, "error listing recordings")
			return
		}
		c.JSON(http.StatusOK, recordings)
	})

	r.GET("/api/v1/recordings/:id/info", func(c *gin.Context) {
		summary, err := wi.repo.Get(c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.String(http.StatusNotFound, "no recording with id=%s", c.Param("id"))
			return
		}
		if err != nil {
			wi.logger.Error("got error when getting recording", slog.Any("error", err))
			c.String(http.StatusInternalServerError, "error getting recording")
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	r.GET("/api/v1/recordings/:id/tables/:kind", func(c *gin.Context) {
		limit, err := intQueryParam(c, "limit", defaultPageSize)
		if err != nil {
			c.String(http.StatusBadRequest, "limit must be an integer")
			return
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		offset, err := intQueryParam(c, "offset", 0)
		if err != nil {
			c.String(http.StatusBadRequest, "offset must be an integer")
			return
		}
		slice, err := wi.repo.Table(c.Param("id"), c.Param("kind"), limit, offset)
		if errors.Is(err, store.ErrUnknownTableKind) {
			c.String(http.StatusBadRequest, "%s", err.Error())
			return
		}
		if err != nil {
			wi.logger.Error("got error when querying table",
				slog.String("kind", c.Param("kind")), slog.Any("error", err))
			c.String(http.StatusInternalServerError, "error querying table")
			return
		}
		c.JSON(http.StatusOK, slice)
	})

	return r
}

func intQueryParam(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
