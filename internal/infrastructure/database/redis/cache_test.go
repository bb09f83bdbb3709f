package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/nuriwon/yakgwan/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewCache(db, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedResult struct {
	Hash  string `json:"hash"`
	Value int64  `json:"value"`
}

func (s *CacheTestSuite) TestGetHit() {
	val := cachedResult{Hash: "abc", Value: 100_000_000}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:chunk:abc").SetVal(string(raw))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "chunk:abc", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetMiss() {
	s.mock.ExpectGet("test:chunk:missing").RedisNil()

	var dest cachedResult
	err := s.cache.Get(context.Background(), "chunk:missing", &dest)

	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheMiss))
}

func (s *CacheTestSuite) TestGetCorruptEvictsAndMisses() {
	s.mock.ExpectGet("test:chunk:bad").SetVal("{not json")
	s.mock.ExpectDel("test:chunk:bad").SetVal(1)

	var dest cachedResult
	err := s.cache.Get(context.Background(), "chunk:bad", &dest)

	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheMiss),
		"corruption must surface as a miss, not an error")
}

func (s *CacheTestSuite) TestSet() {
	val := cachedResult{Hash: "abc", Value: 42}
	raw, _ := json.Marshal(val)
	s.mock.ExpectSet("test:chunk:abc", raw, time.Minute).SetVal("OK")

	assert.NoError(s.T(), s.cache.Set(context.Background(), "chunk:abc", val, time.Minute))
}

func (s *CacheTestSuite) TestSetNX() {
	val := cachedResult{Hash: "abc"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectSetNX("test:tpl:1", raw, time.Hour).SetVal(true)

	ok, err := s.cache.SetNX(context.Background(), "tpl:1", val, time.Hour)
	assert.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestSetNXAlreadyHeld() {
	val := cachedResult{Hash: "abc"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectSetNX("test:tpl:1", raw, time.Hour).SetVal(false)

	ok, err := s.cache.SetNX(context.Background(), "tpl:1", val, time.Hour)
	assert.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *CacheTestSuite) TestTouch() {
	s.mock.ExpectExpire("test:chunk:abc", time.Hour).SetVal(true)

	ok, err := s.cache.Touch(context.Background(), "chunk:abc", time.Hour)
	assert.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	assert.NoError(s.T(), s.cache.Delete(context.Background(), "a", "b"))
}

func (s *CacheTestSuite) TestDeleteNoKeys() {
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:chunk:abc").SetVal(1)
	ok, err := s.cache.Exists(context.Background(), "chunk:abc")
	assert.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestGetOrSetLoadsOnMiss() {
	val := cachedResult{Hash: "new", Value: 7}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:chunk:new").RedisNil()
	s.mock.ExpectSet("test:chunk:new", raw, time.Minute).SetVal("OK")

	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "chunk:new", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			return val, nil
		})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSetSkipsLoaderOnHit() {
	val := cachedResult{Hash: "hit"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:chunk:hit").SetVal(string(raw))

	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "chunk:hit", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			s.T().Fatal("loader must not run on a cache hit")
			return nil, nil
		})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
