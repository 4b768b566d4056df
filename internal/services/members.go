package services

import (
	goerrors "errors"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"gorm.io/gorm"
)

// ResolveMember looks up a member by id. Identity management is external;
// the chat core only needs id and display attributes.
func ResolveMember(memberID string) (*models.Member, error) {
	var member models.Member
	if err := database.DB.First(&member, "id = ?", memberID).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}
