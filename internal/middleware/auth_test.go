package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/config"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuthTest() {
	logger.Init("test")
	config.AppConfig = &config.Config{JWTSecret: "middleware-test-secret"}
	db, _ := gorm.Open(sqlite.Open("file:middleware_test?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	database.DB = db
	database.DB.AutoMigrate(&models.Member{})
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"memberId": c.MustGet("memberId")})
	})
	return r
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	setupAuthTest()

	memberID := utils.GenerateID()
	database.DB.Create(&models.Member{ID: memberID, Nickname: "nick_valid"})

	token, err := utils.GenerateToken(memberID)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), memberID)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	setupAuthTest()

	router := authRouter()

	// No Authorization header
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token for a member that does not exist
	token, err := utils.GenerateToken(utils.GenerateID())
	assert.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
