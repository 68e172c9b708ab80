package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/locale"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/service"
)

type messageKey string

const (
	msgSiteName           messageKey = "site_name"
	msgSaved              messageKey = "saved"
	msgDeleted            messageKey = "deleted"
	msgSaveFailed         messageKey = "save_failed"
	msgLoadFailed         messageKey = "load_failed"
	msgUnauthorized       messageKey = "unauthorized"
	msgForbidden          messageKey = "forbidden"
	msgInvalidInput       messageKey = "invalid_input"
	msgInvalidDate        messageKey = "invalid_date"
	msgInvalidNumber      messageKey = "invalid_number"
	msgLocationNotFound   messageKey = "location_not_found"
	msgProvinceRequired   messageKey = "province_required"
	msgRegistered         messageKey = "registered"
	msgPasswordMismatch   messageKey = "password_mismatch"
	msgPasswordTooShort   messageKey = "password_too_short"
	msgUsernameTaken      messageKey = "username_taken"
	msgInvalidRole        messageKey = "invalid_role"
	msgInvalidCredentials messageKey = "invalid_credentials"
	msgPendingApproval    messageKey = "pending_approval"
	msgUserNotFound       messageKey = "user_not_found"
	msgApproved           messageKey = "approved"
	msgLoggedOut          messageKey = "logged_out"
	msgUploadTooLarge     messageKey = "upload_too_large"
	msgUploadNotPDF       messageKey = "upload_not_pdf"
	msgUploaded           messageKey = "uploaded"
	msgNotFound           messageKey = "not_found"
	msgTooManyAttempts    messageKey = "too_many_attempts"
)

// messages 每个键对应 {英文, 泰文}。
var messages = map[messageKey][2]string{
	msgSiteName:           {"Public Health Emergency Reporting", "ระบบรายงานสถานการณ์ฉุกเฉินด้านสาธารณสุข"},
	msgSaved:              {"Saved successfully", "บันทึกข้อมูลสำเร็จ"},
	msgDeleted:            {"Deleted successfully", "ลบข้อมูลสำเร็จ"},
	msgSaveFailed:         {"An error occurred while saving", "เกิดข้อผิดพลาดในการบันทึกข้อมูล"},
	msgLoadFailed:         {"An error occurred while loading data", "เกิดข้อผิดพลาดในการโหลดข้อมูล"},
	msgUnauthorized:       {"Unauthorized", "กรุณาเข้าสู่ระบบ"},
	msgForbidden:          {"You do not have permission for this action", "คุณไม่มีสิทธิ์ดำเนินการนี้"},
	msgInvalidInput:       {"Invalid input", "ข้อมูลไม่ถูกต้อง"},
	msgInvalidDate:        {"Please provide a valid date", "กรุณาระบุวันที่ให้ถูกต้อง"},
	msgInvalidNumber:      {"Numbers must not be negative", "ตัวเลขต้องไม่ติดลบ"},
	msgLocationNotFound:   {"Location not found", "ไม่พบพื้นที่ที่เลือก"},
	msgProvinceRequired:   {"Please select a province", "กรุณาเลือกจังหวัด"},
	msgRegistered:         {"Registration complete. Please wait for approval.", "ลงทะเบียนสำเร็จ กรุณารอการอนุมัติ"},
	msgPasswordMismatch:   {"Passwords do not match", "รหัสผ่านไม่ตรงกัน"},
	msgPasswordTooShort:   {"Password must be at least 8 characters", "รหัสผ่านต้องมีอย่างน้อย 8 ตัวอักษร"},
	msgUsernameTaken:      {"Username is already taken", "ชื่อผู้ใช้นี้ถูกใช้แล้ว"},
	msgInvalidRole:        {"Invalid role", "ประเภทผู้ใช้ไม่ถูกต้อง"},
	msgInvalidCredentials: {"Invalid username or password", "ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง"},
	msgPendingApproval:    {"Your account is waiting for approval", "บัญชีของคุณอยู่ระหว่างรอการอนุมัติ"},
	msgUserNotFound:       {"User not found", "ไม่พบผู้ใช้"},
	msgApproved:           {"User approved", "อนุมัติผู้ใช้แล้ว"},
	msgLoggedOut:          {"You have been signed out", "ออกจากระบบแล้ว"},
	msgUploadTooLarge:     {"File is too large", "ไฟล์มีขนาดใหญ่เกินกำหนด"},
	msgUploadNotPDF:       {"Only PDF files are accepted", "รองรับเฉพาะไฟล์ PDF"},
	msgUploaded:           {"File uploaded", "อัปโหลดไฟล์สำเร็จ"},
	msgNotFound:           {"Page not found", "ไม่พบหน้าที่ต้องการ"},
	msgTooManyAttempts:    {"Too many login attempts, please try again shortly", "พยายามเข้าสู่ระบบบ่อยเกินไป กรุณาลองใหม่ภายหลัง"},
}

func translate(language string, key messageKey) string {
	pair, ok := messages[key]
	if !ok {
		return string(key)
	}
	return pickPair(language, pair)
}

func pickPair(language string, pair [2]string) string {
	return locale.Pick(language, pair[0], pair[1])
}

func (a *API) text(c *gin.Context, key messageKey) string {
	return translate(a.language(c), key)
}

// errorMessageKey 把领域错误映射为用户可读的提示；未知错误一律按保存失败处理，避免泄露内部细节。
func errorMessageKey(err error) messageKey {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return msgUnauthorized
	case errors.Is(err, access.ErrForbidden):
		return msgForbidden
	case errors.Is(err, reconcile.ErrInvalidDate), errors.Is(err, reconcile.ErrMissingScope):
		return msgInvalidDate
	case errors.Is(err, service.ErrNegativeValue):
		return msgInvalidNumber
	case errors.Is(err, service.ErrLocationNotFound):
		return msgLocationNotFound
	case errors.Is(err, service.ErrProvinceRequired):
		return msgProvinceRequired
	case errors.Is(err, service.ErrPasswordMismatch):
		return msgPasswordMismatch
	case errors.Is(err, service.ErrPasswordTooShort):
		return msgPasswordTooShort
	case errors.Is(err, service.ErrUsernameTaken):
		return msgUsernameTaken
	case errors.Is(err, service.ErrInvalidRole):
		return msgInvalidRole
	case errors.Is(err, service.ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, service.ErrPendingApproval):
		return msgPendingApproval
	case errors.Is(err, service.ErrUserNotFound):
		return msgUserNotFound
	case errors.Is(err, service.ErrUploadTooLarge):
		return msgUploadTooLarge
	case errors.Is(err, service.ErrUploadNotPDF):
		return msgUploadNotPDF
	case errors.Is(err, service.ErrValidation), service.IsValidationError(err):
		return msgInvalidInput
	default:
		return msgSaveFailed
	}
}

func (a *API) errorMessage(c *gin.Context, err error) string {
	return a.text(c, errorMessageKey(err))
}
