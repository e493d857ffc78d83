package handlers

import (
	"net/http"
	"strconv"

	"club_access/internal/models"
	"club_access/internal/response"
	"club_access/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateMemberRequest struct {
	Name    string `json:"name" binding:"required"`
	Surname string `json:"surname" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}

func memberAdmin(member *models.Member) response.MemberResponse {
	return response.MemberResponse{
		ID:         member.ID,
		Name:       member.Name,
		Surname:    member.Surname,
		Email:      member.Email,
		EmailValid: member.EmailValid,
		Blocked:    member.Blocked,
		QRToken:    member.QRToken,
		CreatedAt:  member.CreatedAt,
	}
}

// CreateMemberHandler создаёт участника с новым QR-токеном.
// @Summary		Создание участника
// @Description	Создаёт участника и выпускает ему уникальный QR-токен
// @Tags			members
// @Accept			json
// @Produce		json
// @Param			member	body		CreateMemberRequest			true	"Данные участника"
// @Security		BearerAuth
// @Success		201		{object}	response.MemberResponse		"Созданный участник с QR-токеном"
// @Failure		400		{object}	response.ErrorResponse		"Ошибка валидации (VALIDATION_ERROR) или email занят (EMAIL_EXISTS)"
// @Failure		500		{object}	response.ErrorResponse		"Ошибка сервера (DB_ERROR)"
// @Router			/api/members [post]
func CreateMemberHandler(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	var existing models.Member
	if err := storage.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "EMAIL_EXISTS",
			Message: "Участник с таким email уже существует",
		})
		return
	}

	member := models.Member{
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
		QRToken: uuid.NewString(),
	}
	if err := storage.DB.Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании участника",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, memberAdmin(&member))
}

// ListMembersHandler возвращает список участников.
// @Summary		Список участников
// @Tags			members
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		response.MemberResponse	"Участники"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/members [get]
func ListMembersHandler(c *gin.Context) {
	var members []models.Member
	if err := storage.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки участников",
			Details: err.Error(),
		})
		return
	}

	out := make([]response.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, memberAdmin(&members[i]))
	}
	c.JSON(http.StatusOK, out)
}

func loadMember(c *gin.Context) (*models.Member, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_MEMBER_ID",
			Message: "Неверный идентификатор участника",
		})
		return nil, false
	}

	var member models.Member
	if err := storage.DB.First(&member, id).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "MEMBER_NOT_FOUND",
			Message: "Участник не найден",
		})
		return nil, false
	}
	return &member, true
}

func setBlocked(c *gin.Context, blocked bool) {
	member, ok := loadMember(c)
	if !ok {
		return
	}

	if err := storage.DB.Model(member).Update("blocked", blocked).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка обновления участника",
			Details: err.Error(),
		})
		return
	}
	member.Blocked = blocked
	c.JSON(http.StatusOK, memberAdmin(member))
}

// BlockMemberHandler блокирует участника: сканер будет отказывать ему
// немедленно, история при этом сохраняется.
// @Summary		Блокировка участника
// @Tags			members
// @Produce		json
// @Param			id	path	int	true	"ID участника"
// @Security		BearerAuth
// @Success		200	{object}	response.MemberResponse	"Обновлённый участник"
// @Failure		404	{object}	response.ErrorResponse	"Участник не найден (MEMBER_NOT_FOUND)"
// @Router			/api/members/{id}/block [post]
func BlockMemberHandler(c *gin.Context) {
	setBlocked(c, true)
}

// UnblockMemberHandler снимает блокировку.
// @Summary		Разблокировка участника
// @Tags			members
// @Produce		json
// @Param			id	path	int	true	"ID участника"
// @Security		BearerAuth
// @Success		200	{object}	response.MemberResponse	"Обновлённый участник"
// @Failure		404	{object}	response.ErrorResponse	"Участник не найден (MEMBER_NOT_FOUND)"
// @Router			/api/members/{id}/unblock [post]
func UnblockMemberHandler(c *gin.Context) {
	setBlocked(c, false)
}

// RotateTokenHandler выпускает участнику новый QR-токен. Старый токен
// перестаёт действовать сразу и никогда не достанется другому
// участнику: значения генерируются заново, а не переиспользуются.
// @Summary		Перевыпуск QR-токена
// @Tags			members
// @Produce		json
// @Param			id	path	int	true	"ID участника"
// @Security		BearerAuth
// @Success		200	{object}	response.MemberResponse	"Участник с новым QR-токеном"
// @Failure		404	{object}	response.ErrorResponse	"Участник не найден (MEMBER_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/members/{id}/qr [post]
func RotateTokenHandler(c *gin.Context) {
	member, ok := loadMember(c)
	if !ok {
		return
	}

	newToken := uuid.NewString()
	if err := storage.DB.Model(member).Update("qr_token", newToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка перевыпуска QR-токена",
			Details: err.Error(),
		})
		return
	}
	member.QRToken = newToken
	c.JSON(http.StatusOK, memberAdmin(member))
}

// ConfirmEmailHandler отмечает контактный email подтверждённым.
// @Summary		Подтверждение email участника
// @Tags			members
// @Produce		json
// @Param			id	path	int	true	"ID участника"
// @Security		BearerAuth
// @Success		200	{object}	response.MemberResponse	"Обновлённый участник"
// @Failure		404	{object}	response.ErrorResponse	"Участник не найден (MEMBER_NOT_FOUND)"
// @Router			/api/members/{id}/confirm-email [post]
func ConfirmEmailHandler(c *gin.Context) {
	member, ok := loadMember(c)
	if !ok {
		return
	}

	if err := storage.DB.Model(member).Update("email_valid", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка обновления участника",
			Details: err.Error(),
		})
		return
	}
	member.EmailValid = true
	c.JSON(http.StatusOK, memberAdmin(member))
}
