package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"bukukas/models"
	"bukukas/pkg/csvio"
	"bukukas/pkg/ledger"
)

func setupRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	auth.POST("/login", loginHandler)
	auth.POST("/refresh", refreshHandler)
	auth.PUT("/change-password", jwtAuthMiddleware(), changePasswordHandler)

	tx := r.Group("/api/transactions")
	tx.Use(jwtAuthMiddleware())
	tx.POST("", createTransactionHandler)
	tx.GET("", listTransactionsHandler)
	tx.GET("/export", exportCSVHandler)
	tx.POST("/upload-csv", uploadCSVHandler)
	tx.GET("/account/:nama_akun", listByAccountHandler)
	tx.GET("/date/:tanggal", listByDateHandler)
	tx.GET("/range/:start/:end", listByDateRangeHandler)
	tx.GET("/:id", getTransactionHandler)
	tx.PUT("/:id", updateTransactionHandler)
	tx.DELETE("/:id", deleteTransactionHandler)
	tx.DELETE("", deleteAllTransactionsHandler)
}

// jwtAuthMiddleware rejects a missing Authorization header with 403 and an
// invalid bearer token with 401.
func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusForbidden, gin.H{"message": "No token provided!"})
			c.Abort()
			return
		}
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized!"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized!"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized!"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		c.Set("username", username)
		c.Next()
	}
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": refreshToken})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

func changePasswordHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"message": "confirmPassword does not match newPassword"})
		return
	}
	if err := ChangePassword(user, req.CurrentPassword, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

// respondLedgerError maps service errors onto the API status codes.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Transaction not found."})
	case errors.Is(err, ledger.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid transaction id"})
		return 0, false
	}
	return uint(id), true
}

func createTransactionHandler(c *gin.Context) {
	var req struct {
		Tanggal     string `json:"tanggal" binding:"required"`
		Waktu       string `json:"waktu"`
		NamaAkun    string `json:"nama_akun"`
		Pemasukan   int64  `json:"pemasukan"`
		Pengeluaran int64  `json:"pengeluaran"`
		Keterangan  string `json:"keterangan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Content can not be empty!"})
		return
	}
	created, err := ledgerSvc.Create(models.Transaction{
		Tanggal:     req.Tanggal,
		Waktu:       req.Waktu,
		NamaAkun:    req.NamaAkun,
		Pemasukan:   req.Pemasukan,
		Pengeluaran: req.Pengeluaran,
		Keterangan:  req.Keterangan,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.Display(created))
}

// listTransactionsHandler lists all transactions, optionally filtered by a
// tanggal substring. When both page and limit are present the response is
// wrapped in a pagination envelope; otherwise the full set is returned.
func listTransactionsHandler(c *gin.Context) {
	f := ledger.Filter{TanggalLike: c.Query("tanggal")}
	pageStr, limitStr := c.Query("page"), c.Query("limit")

	if pageStr != "" && limitStr != "" {
		pr, err := ledger.ParsePageRequest(pageStr, limitStr)
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		items, pagination, err := ledgerSvc.ListPage(f, pr)
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": ledger.DisplayAll(items), "pagination": pagination})
		return
	}

	items, err := ledgerSvc.List(f, -1, 0)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.DisplayAll(items))
}

func listByAccountHandler(c *gin.Context) {
	pr, err := ledger.ParsePageRequest(c.Query("page"), c.Query("limit"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	f := ledger.Filter{NamaAkun: c.Param("nama_akun")}
	items, pagination, err := ledgerSvc.ListPage(f, pr)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ledger.DisplayAll(items), "pagination": pagination})
}

func listByDateHandler(c *gin.Context) {
	f := ledger.Filter{TanggalExact: ledger.NormalizeDate(c.Param("tanggal"))}
	items, err := ledgerSvc.List(f, -1, 0)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.DisplayAll(items))
}

func listByDateRangeHandler(c *gin.Context) {
	pr, err := ledger.ParsePageRequest(c.Query("page"), c.Query("limit"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	f := ledger.Filter{
		Start: ledger.NormalizeDate(c.Param("start")),
		End:   ledger.NormalizeDate(c.Param("end")),
	}
	items, pagination, err := ledgerSvc.ListPage(f, pr)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ledger.DisplayAll(items), "pagination": pagination})
}

func getTransactionHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	t, err := ledgerSvc.Get(id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.Display(t))
}

func updateTransactionHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Tanggal     *string `json:"tanggal"`
		Waktu       *string `json:"waktu"`
		NamaAkun    *string `json:"nama_akun"`
		Pemasukan   *int64  `json:"pemasukan"`
		Pengeluaran *int64  `json:"pengeluaran"`
		Keterangan  *string `json:"keterangan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Content can not be empty!"})
		return
	}
	updated, err := ledgerSvc.Update(id, ledger.Patch{
		Tanggal:     req.Tanggal,
		Waktu:       req.Waktu,
		NamaAkun:    req.NamaAkun,
		Pemasukan:   req.Pemasukan,
		Pengeluaran: req.Pengeluaran,
		Keterangan:  req.Keterangan,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.Display(updated))
}

func deleteTransactionHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := ledgerSvc.Delete(id); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction was deleted successfully!"})
}

func deleteAllTransactionsHandler(c *gin.Context) {
	if _, err := ledgerSvc.DeleteAll(); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All Transactions were deleted successfully!"})
}

// exportCSVHandler streams the filtered set as a CSV attachment. Filter
// precedence mirrors listing: date range, then account, then tanggal substring.
func exportCSVHandler(c *gin.Context) {
	var f ledger.Filter
	startDate, endDate := c.Query("startDate"), c.Query("endDate")
	switch {
	case startDate != "" && endDate != "":
		f.Start = ledger.NormalizeDate(startDate)
		f.End = ledger.NormalizeDate(endDate)
	case c.Query("nama_akun") != "":
		f.NamaAkun = c.Query("nama_akun")
	default:
		f.TanggalLike = c.Query("tanggal")
	}
	items, err := ledgerSvc.List(f, -1, 0)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=transactions.csv")
	if err := csvio.Write(c.Writer, items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

// uploadCSVHandler bulk-imports a CSV file. Rows are created strictly in file
// order so each row's saldo builds on the previous insert; rows that fail are
// dropped from the tally, not reported individually.
func uploadCSVHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	defer file.Close()

	rows, err := csvio.Read(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	inserted := 0
	for _, row := range rows {
		if _, err := ledgerSvc.Create(row.Transaction()); err == nil {
			inserted++
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": strconv.Itoa(inserted) + " transactions uploaded."})
}
