// Package flow defines the user-facing reply texts and menu layouts.
package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// Keyword vocabularies for stateless commands. Matching is case-insensitive
// on the trimmed message.
var (
	greetingWords   = []string{"hi", "hello", "hey", "hola", "buenas", "buenos dias"}
	cancelKeywords  = []string{"cancelar", "cancel"}
	agendaKeywords  = []string{"citas hoy", "agenda"}
	mediaSampleWord = "send media"
)

// Button ids of the main menu and its extensions.
const (
	buttonSchedule  = "schedule"
	buttonServices  = "services"
	buttonLocation  = "location"
	buttonEmergency = "emergency"
)

// Sample media attachment served by the "send media" command.
const (
	sampleMediaURL     = "https://s3.amazonaws.com/gndx.dev/medpet-audio.aac"
	sampleMediaCaption = "🎵 Aquí tienes el archivo de audio solicitado:"
)

// assistantSystemPrompt constrains the knowledge adapter to the clinic's
// medical-assistant persona, language and scope.
const assistantSystemPrompt = "Eres un asistente médico virtual de una farmacia/clínica. " +
	"Proporciona información útil y precisa sobre salud, medicamentos y servicios médicos. " +
	"Responde en español y de manera amigable."

const (
	msgMenuPrompt         = "Selecciona una opción:"
	msgFollowUpMenuPrompt = "¿Hay algo más en lo que pueda ayudarte?"

	msgCancelAck       = "✅ Proceso cancelado. Puedes empezar de nuevo cuando quieras."
	msgNothingToCancel = "ℹ️ No tienes ningún proceso activo. ¿En qué puedo ayudarte?"

	msgAppointmentStart = "📅 *Proceso de Agendamiento de Cita*\n\n" +
		"Para agendar tu cita, por favor proporciona tu *nombre completo*:"

	msgAssistantStart = "🤖 *Asistente Virtual Activado*\n\n" +
		"💬 Hola! Soy tu asistente inteligente. Puedes hacerme cualquier consulta sobre:\n\n" +
		"• Información médica general\n• Medicamentos y tratamientos\n" +
		"• Servicios de la clínica\n• Cualquier duda de salud\n\n¿En qué puedo ayudarte hoy?"

	msgAssistantTooShort = "💬 Por favor escribe tu consulta con un poco más de detalle."

	msgAssistantApology = "❌ Lo siento, no pude procesar tu consulta en este momento. " +
		"Por favor intenta de nuevo más tarde o llama al +57 3002726932."

	msgGenericApology = "⚠️ Ocurrió un error inesperado. Hemos reiniciado tu conversación; " +
		"salúdanos de nuevo para continuar."

	msgLocationIntro = "📍 *Nuestra Ubicación:*\n\nTe comparto nuestra ubicación exacta:"
	msgLocationHours = "🕐 *Horarios de Atención:*\nLunes a Viernes: 8:00 AM - 6:00 PM\n" +
		"Sábados: 8:00 AM - 2:00 PM\n\n📞 Para emergencias: +57 3002726932"
	msgLocationFallback = "📍 Nuestra ubicación:\n\nAv. Principal, Maracaibo, Zulia, Venezuela\n\n" +
		"📞 Teléfono: +57 3002726932\n📧 Email: cesarthdiz@gmail.com"

	msgEmergencyIntro    = "🚑 *Contacto de Emergencia*\n\nTe comparto nuestro contacto de emergencia:"
	msgEmergencyFallback = "🚑 En caso de emergencia:\n\n📞 Llama al: +57 3002726932\n📧 Email: cesarthdiz@gmail.com"

	msgMediaError = "❌ Lo siento, hubo un error al enviar el medio."

	msgAgendaEmpty = "📅 No hay citas programadas para hoy."
	msgAgendaError = "❌ Error consultando las citas del día."

	msgArrivalInfo = "ℹ️ *Información importante:*\n\nPor favor llega 10 minutos antes de tu cita " +
		"con tu documento de identidad.\n\n📞 Cualquier cambio, llámanos al: +57 3002726932"
)

// Re-prompts for invalid step input.
const (
	msgInvalidName  = "❌ Por favor ingresa un *nombre válido* (mínimo 2 caracteres)."
	msgInvalidDate  = "❌ Fecha inválida. Usa el formato *DD/MM/AAAA* y asegúrate de que no sea una fecha pasada.\n\n_Ejemplo: 15/12/2024_"
	msgInvalidTime  = "❌ Hora inválida.\n\n_Ejemplo: 10:30 AM o 14:30_"
	msgInvalidText  = "❌ Por favor escribe un poco más de detalle."
	msgInvalidMonto = "❌ Por favor ingresa un *monto válido* (solo números).\n\n💰 Ejemplo: 50, 100, 150"
	msgInvalidRIF   = "❌ RIF inválido.\n\n_Ejemplo: J-12345678-9, V-98765432-1_"
	msgInvalidPago  = "❌ Por favor indica un *método de pago* válido.\n\n_Opciones: Efectivo, Tarjeta, Transferencia, Pago móvil, etc._"
)

// alternativeSlots are the fixed suggestions presented on a time conflict.
// Presentation constants; adjust to the clinic's hours as needed.
var alternativeSlots = []string{"9:00 AM", "11:00 AM", "2:00 PM", "4:00 PM"}

// mainMenuButtons returns the three-option welcome menu.
func mainMenuButtons() []models.Button {
	return []models.Button{
		{ID: buttonSchedule, Label: "📅 Agendar Cita"},
		{ID: buttonServices, Label: "💬 Consultar"},
		{ID: buttonLocation, Label: "📍 Ubicación"},
	}
}

// followUpMenuButtons returns the menu shown after an assistant answer.
func followUpMenuButtons() []models.Button {
	return []models.Button{
		{ID: buttonSchedule, Label: "📅 Agendar Cita"},
		{ID: buttonServices, Label: "💬 Otra Consulta"},
		{ID: buttonLocation, Label: "📍 Ubicación"},
	}
}

// locationMenuButtons returns the menu shown after the location info. This is
// where the emergency contact option surfaces; the main menu has no room for
// it (the Cloud API caps interactive messages at three buttons).
func locationMenuButtons() []models.Button {
	return []models.Button{
		{ID: buttonSchedule, Label: "📅 Agendar Cita"},
		{ID: buttonServices, Label: "💬 Consultar"},
		{ID: buttonEmergency, Label: "🚑 Emergencia"},
	}
}

func welcomeMessage(name string) string {
	return fmt.Sprintf("👋 Hola *%s*, ¡bienvenido/a a nuestro servicio de WhatsApp! ¿En qué puedo ayudarte hoy?", name)
}

func namePrompt(name string) string {
	return fmt.Sprintf("✅ Gracias *%s*.\n\n📅 Por favor, proporciona tu *fecha preferida* (formato: DD/MM/AAAA):\n\n_Ejemplo: 15/12/2024_", name)
}

func datePrompt(date string) string {
	return fmt.Sprintf("📅 Fecha registrada: *%s*\n\n🕐 ¿A qué *hora* prefieres tu cita?\n\n_Ejemplo: 10:30 AM o 14:30_", date)
}

func timePrompt(timeStr string) string {
	return fmt.Sprintf("🕐 Hora registrada: *%s*\n\n💬 ¿Qué tipo de *consulta* necesitas?", timeStr)
}

func consultaPrompt(consulta string) string {
	return fmt.Sprintf("💬 Tipo de consulta: *%s*\n\n💰 ¿Cuál es el *monto* de la consulta?\n\n_Ejemplo: 50, 100, 150 (solo números)_", consulta)
}

func montoPrompt(monto string) string {
	return fmt.Sprintf("💰 Monto registrado: *$%s*\n\n🏥 ¿Cuál es el nombre del *proveedor* o centro médico?\n\n_Ejemplo: Clínica San Rafael, Dr. García, etc._", monto)
}

func proveedorPrompt(proveedor string) string {
	return fmt.Sprintf("🏥 Proveedor registrado: *%s*\n\n📋 Por favor proporciona el *RIF* del proveedor:\n\n_Ejemplo: J-12345678-9, V-98765432-1_", proveedor)
}

func rifPrompt(rif string) string {
	return fmt.Sprintf("📋 RIF registrado: *%s*\n\n💳 ¿Cuál será el *método de pago*?\n\n_Opciones: Efectivo, Tarjeta, Transferencia, Pago móvil, etc._", rif)
}

func conflictMessage(date string) string {
	var b strings.Builder
	b.WriteString("⚠️ *Horario no disponible*\n\n🕐 Ya hay una cita programada cerca de esa hora.\n\n")
	fmt.Fprintf(&b, "📅 *Horarios disponibles para %s:*\n", date)
	for _, slot := range alternativeSlots {
		fmt.Fprintf(&b, "- %s\n", slot)
	}
	b.WriteString("\nPor favor elige otro horario:")
	return b.String()
}

func draftSummary(draft models.AppointmentDraft) string {
	return fmt.Sprintf("👤 *Nombre:* %s\n📅 *Fecha:* %s\n🕐 *Hora:* %s\n💬 *Consulta:* %s\n"+
		"💰 *Monto:* $%s\n🏥 *Proveedor:* %s\n📋 *RIF:* %s\n💳 *Método de pago:* %s",
		draft.Name, draft.Date, draft.Time, draft.Consulta, draft.Monto, draft.Proveedor, draft.RIF, draft.Pago)
}

func confirmationMessage(draft models.AppointmentDraft, link string) string {
	return fmt.Sprintf("🎉 *¡CITA CONFIRMADA Y AGENDADA!* 🎉\n\n"+
		"📅 *Tu cita ha sido guardada en el calendario*\n🔗 *Link directo:* %s\n\n"+
		"📋 *RESUMEN COMPLETO:*\n%s\n\n"+
		"✅ *La cita está sincronizada con el calendario*\n📧 *Recibirás recordatorios automáticos*\n\n"+
		"¡Gracias por confiar en nosotros!", link, draftSummary(draft))
}

func degradedConfirmationMessage(draft models.AppointmentDraft) string {
	return fmt.Sprintf("⚠️ *Cita registrada* pero hubo un problema con el calendario.\n\n"+
		"📋 *Datos guardados exitosamente*\n❌ *Calendario:* No se pudo sincronizar automáticamente\n\n"+
		"📞 *Por favor contacta a soporte para confirmar tu cita*\n\n"+
		"*Datos de tu cita:*\n%s", draftSummary(draft))
}

func agendaMessage(day time.Time, events []models.CalendarEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Citas de hoy (%s):*\n\n", day.Format("02/01/2006"))
	for i, event := range events {
		fmt.Fprintf(&b, "%d. 🕐 %s - %s\n", i+1, event.Start.Format("15:04"), event.Summary)
	}
	return b.String()
}
